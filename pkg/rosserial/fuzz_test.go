// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rosserial

import (
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// TestFuzzDecoder_RandomBytes feeds random bytes to the decoder
// and verifies it doesn't crash or panic
func TestFuzzDecoder_RandomBytes(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		d := NewDecoder(nil)

		length := rng.Intn(2048) + 1
		data := make([]byte, length)
		rng.Read(data)

		for _, b := range data {
			d.DecodeByte(b)
		}
	}
}

// TestFuzzDecoder_RandomFrames encodes random valid frames and verifies
// each one decodes back to the same topic and payload
func TestFuzzDecoder_RandomFrames(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	d := NewDecoder(nil)
	for i := 0; i < rounds; i++ {
		topicID := uint16(rng.Intn(0x10000))
		payload := make([]byte, rng.Intn(MaxPayload+1))
		rng.Read(payload)

		data, err := Encode(topicID, payload)
		if err != nil {
			t.Fatalf("encode failed: %v", err)
		}

		var got *Frame
		for _, b := range data {
			if f := d.DecodeByte(b); f != nil {
				got = f
			}
		}

		if got == nil {
			t.Fatalf("round %d: frame not decoded (topic=%d len=%d)", i, topicID, len(payload))
		}
		if got.TopicID() != topicID {
			t.Fatalf("round %d: topic mismatch: want %d, got %d", i, topicID, got.TopicID())
		}
		if len(got.Payload()) != len(payload) {
			t.Fatalf("round %d: payload length mismatch: want %d, got %d", i, len(payload), len(got.Payload()))
		}
		for j := range payload {
			if got.Payload()[j] != payload[j] {
				t.Fatalf("round %d: payload byte %d mismatch", i, j)
			}
		}
	}

	if d.Stats().ValidFrames != uint64(rounds) {
		t.Errorf("expected %d valid frames, got %d", rounds, d.Stats().ValidFrames)
	}
	if errs := d.Stats().ErrorCount(); errs != 0 {
		t.Errorf("expected no errors, got %d", errs)
	}
}

// TestFuzzDecoder_NoiseBetweenFrames interleaves valid frames with bursts
// of random noise and verifies every frame still decodes after the
// decoder drains the noise
func TestFuzzDecoder_NoiseBetweenFrames(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	d := NewDecoder(nil)
	for i := 0; i < rounds; i++ {
		noise := make([]byte, rng.Intn(64))
		rng.Read(noise)
		for _, b := range noise {
			d.DecodeByte(b)
		}

		// Noise can leave the decoder mid-frame; a run of zeros drains
		// any pending state without starting a new frame.
		flush := make([]byte, MaxPayload+8)
		for _, b := range flush {
			d.DecodeByte(b)
		}

		topicID := uint16(rng.Intn(0x10000))
		payload := make([]byte, rng.Intn(32))
		rng.Read(payload)

		data, err := Encode(topicID, payload)
		if err != nil {
			t.Fatalf("encode failed: %v", err)
		}

		var got *Frame
		for _, b := range data {
			if f := d.DecodeByte(b); f != nil {
				got = f
			}
		}

		if got == nil || got.TopicID() != topicID {
			t.Fatalf("round %d: frame lost after noise", i)
		}
	}
}
