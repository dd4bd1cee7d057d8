package app

import "fmt"

type BackpressureAction int

const (
	// ReplaceStale drops the oldest buffered snapshot to make room for the
	// newest one. Snapshots are full states, so only the latest matters.
	ReplaceStale BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what the bus does with a subscriber whose buffer is full.
type Policy interface {
	OnBackPressure(topic string, sub *Subscription) BackpressureAction
}

type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(string, *Subscription) BackpressureAction {
	return ReplaceStale
}

// StaticPolicy always answers with the same action.
type StaticPolicy BackpressureAction

func (p StaticPolicy) OnBackPressure(string, *Subscription) BackpressureAction {
	return BackpressureAction(p)
}

// PolicyByName maps a config value to a Policy.
func PolicyByName(name string) (Policy, error) {
	switch name {
	case "", "replace":
		return SimplePolicy{}, nil
	case "drop":
		return StaticPolicy(DropFrame), nil
	case "kick":
		return StaticPolicy(KickMember), nil
	}
	return nil, fmt.Errorf("unknown backpressure policy %q", name)
}
