/*
Package sixarm is a real-time controller for a six-axis hobby actuator rig: six
servo channels driven from analog pots, a four-button panel, a persisted bank of
taught steps and three playback modes.

It implements a single cooperative control loop around an exclusive mode state
machine, separating the rig's logic (modes, gestures, playback) from its I/O
(servo driver, storage backend, remote surface). This hexagonal architecture
lets the same core run against real hardware, an in-memory simulator, or
anything else that satisfies the driver ports.

# Concept

All rig state is owned by one goroutine. Every tick it samples the pots,
debounces the buttons and classifies their gestures, dispatches the resulting
triggers into the mode controller, advances playback, smooths motion toward the
target pose and writes the servos. Remote commands join the same queue, so
exactly one trigger is ever in flight and no mutation can interleave with
another. Taught steps live in a fixed-layout blob (file, Redis, or memory) with
commit/rollback semantics: a mutation that cannot be made durable is rolled
back and reported instead of leaving the bank inconsistent.

# Key Features

  - Single-writer core: one loop owns all state; embedders talk to it through a
    goroutine-safe facade.
  - Teach and play: record poses from the pots, then step through them manually,
    run the sequence once, or loop it continuously.
  - Button gestures: debounced single, double-quick and double-held presses,
    plus a long hold to clear the bank.
  - Durable step bank: pluggable storage with boot-time validation and
    per-mutation commit.
  - Swappable drivers: Pololu Maestro serial hardware or an in-memory sim.

# Usage

Build a rig, start its loop, then drive it with triggers:

	package main

	import (
		"context"
		"log"

		"github.com/buzzauk/sixarm"
		"github.com/buzzauk/sixarm/pkg/domain"
	)

	func main() {
		ctx := context.Background()

		// In-memory storage and a simulated rig by default.
		rig, err := sixarm.New(ctx)
		if err != nil {
			log.Fatal(err)
		}
		defer rig.Close()

		loopCtx, stop := context.WithCancel(ctx)
		defer stop()
		go rig.Run(loopCtx)

		// Record the current pose as a step, then play it back.
		if _, err := rig.Do(ctx, domain.Trigger{Kind: domain.TriggerRecord}); err != nil {
			log.Fatal(err)
		}
		msg, err := rig.Do(ctx, domain.Trigger{Kind: domain.TriggerPlayManual})
		if err != nil {
			log.Fatal(err)
		}
		log.Println(msg)
	}

The cmd/sixarm binary wraps the same facade with a YAML config, an HTTP
command surface and a terminal simulator.
*/
package sixarm
