package mqtt

import (
	"testing"
)

func pushN(rb *ringBuffer, from, n int) {
	for i := from; i < from+n; i++ {
		rb.push(bufferedMsg{topic: Topic, payload: []byte{byte(i)}})
	}
}

func TestRingBufferDrain(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		pushed   int
		want     []byte
		dropped  int
	}{
		{"empty", 4, 0, nil, 0},
		{"partial", 4, 3, []byte{0, 1, 2}, 0},
		{"full", 4, 4, []byte{0, 1, 2, 3}, 0},
		{"overflow keeps newest", 4, 7, []byte{3, 4, 5, 6}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rb := newRingBuffer(tt.capacity, nil)
			pushN(rb, 0, tt.pushed)
			if rb.dropped != tt.dropped {
				t.Errorf("dropped = %d, want %d", rb.dropped, tt.dropped)
			}

			got := rb.drainAll()
			if len(got) != len(tt.want) {
				t.Fatalf("drained %d, want %d", len(got), len(tt.want))
			}
			for i, w := range tt.want {
				if got[i].payload[0] != w {
					t.Errorf("item %d = %d, want %d", i, got[i].payload[0], w)
				}
			}
			if rb.len() != 0 || rb.dropped != 0 {
				t.Error("drain should reset the buffer")
			}
			if again := rb.drainAll(); again != nil {
				t.Errorf("second drain returned %d items", len(again))
			}
		})
	}
}

func TestRingBufferReuseAfterOverflow(t *testing.T) {
	rb := newRingBuffer(3, nil)
	pushN(rb, 0, 5)
	rb.drainAll()

	pushN(rb, 20, 2)
	if rb.len() != 2 {
		t.Fatalf("len = %d, want 2", rb.len())
	}
	got := rb.drainAll()
	if got[0].payload[0] != 20 || got[1].payload[0] != 21 {
		t.Errorf("got %v, %v", got[0].payload, got[1].payload)
	}
}

func TestRingBufferPreservesFields(t *testing.T) {
	rb := newRingBuffer(2, nil)
	rb.push(bufferedMsg{
		topic:    TopicSystem,
		payload:  []byte(`{"system":{}}`),
		qos:      1,
		retained: true,
	})

	got := rb.drainAll()
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	m := got[0]
	if m.topic != TopicSystem || string(m.payload) != `{"system":{}}` || m.qos != 1 || !m.retained {
		t.Errorf("fields not preserved: %+v", m)
	}
}
