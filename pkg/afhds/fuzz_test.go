// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package afhds

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

// newFuzzRng creates a random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := time.Now().UnixNano()
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if s, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			seed = s
		}
	}
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// randomFrame returns random bytes, biased towards known packet types
func randomFrame(rng *rand.Rand) Frame {
	var f Frame
	rng.Read(f[:])
	types := []PacketType{PacketBind, PacketBindAlt, PacketSticks, PacketFailsafe, PacketSettings}
	if rng.Intn(4) != 0 {
		f[0] = byte(types[rng.Intn(len(types))])
	}
	return f
}

// ============================================================
// Decoder Fuzz Tests
// ============================================================

func TestFuzz_DecodeAgreesWithValidate(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		f := randomFrame(rng)

		_, err := Decode(&f)
		anomalies := Validate(&f)

		if err != nil && len(anomalies) == 0 {
			t.Fatalf("round %d: Decode rejected (%v) a frame Validate accepts: %s", i, err, FormatFrame(&f))
		}
		if err == nil {
			for _, a := range anomalies {
				if a.Type != AnomalyHopList {
					t.Fatalf("round %d: Decode accepted a frame with anomaly %q", i, a.Message)
				}
			}
		}
	}
}

func TestFuzz_StickRoundTrip(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		var tx, rx ID
		rng.Read(tx[:])
		rng.Read(rx[:])
		tx[0] |= 0x01

		var ch [AirChannels]uint16
		for j := range ch {
			ch[j] = uint16(StickMin + rng.Intn(StickMax-StickMin+1))
		}

		f := EncodeSticks(tx, rx, ch)
		p, err := DecodeSticks(&f, tx)
		if err != nil {
			t.Fatalf("round %d: DecodeSticks: %v", i, err)
		}
		if p.Channels != ch || p.TxID != tx || p.RxID != rx {
			t.Fatalf("round %d: decoded packet differs from encoded values", i)
		}
	}
}
