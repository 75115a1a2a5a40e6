package lifecycle

import "testing"

func TestValidTransitions(t *testing.T) {
	cases := []struct{ from, to AgentState }{
		{Provisioning, Running},
		{Running, Idle},
		{Running, Hibernating},
		{Idle, Running},
		{Hibernating, Running},
		{Stopping, Stopped},
		{Stopped, Provisioning},
	}
	for _, c := range cases {
		if !IsValidTransition(c.from, c.to) {
			t.Errorf("expected %s -> %s to be valid", c.from, c.to)
		}
	}
}

func TestInvalidTransitions(t *testing.T) {
	cases := []struct{ from, to AgentState }{
		{Running, Provisioning},
		{Provisioning, Stopped},
		{Stopped, Running},
		{Hibernating, Idle},
	}
	for _, c := range cases {
		if IsValidTransition(c.from, c.to) {
			t.Errorf("expected %s -> %s to be invalid", c.from, c.to)
		}
	}
}

func TestValidateTransitionOK(t *testing.T) {
	to, err := ValidateTransition(Running, Idle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if to != Idle {
		t.Fatalf("expected Idle, got %s", to)
	}
}

func TestValidateTransitionErr(t *testing.T) {
	_, err := ValidateTransition(Stopped, Running)
	if err == nil {
		t.Fatal("expected error for Stopped -> Running")
	}
	ite, ok := err.(*InvalidTransitionError)
	if !ok {
		t.Fatalf("expected *InvalidTransitionError, got %T", err)
	}
	if ite.From != Stopped || ite.To != Running {
		t.Fatalf("unexpected error fields: %+v", ite)
	}
}

func TestSessionAcceptance(t *testing.T) {
	if !CanAcceptSessions(Running) {
		t.Error("Running should accept sessions")
	}
	if !CanAcceptSessions(Idle) {
		t.Error("Idle should accept sessions")
	}
	if CanAcceptSessions(Hibernating) {
		t.Error("Hibernating should not accept sessions")
	}
	if CanAcceptSessions(Stopped) {
		t.Error("Stopped should not accept sessions")
	}
}

func TestWakeEligibility(t *testing.T) {
	if !CanWake(Hibernating) {
		t.Error("Hibernating should be wakeable")
	}
	if !CanWake(Stopped) {
		t.Error("Stopped should be wakeable")
	}
	if CanWake(Running) {
		t.Error("Running should not be wakeable")
	}
	if CanWake(Idle) {
		t.Error("Idle should not be wakeable")
	}
}

func TestTerminalStates(t *testing.T) {
	if !IsTerminal(Stopped) {
		t.Error("Stopped should be terminal")
	}
	if !IsTerminal(Error) {
		t.Error("Error should be terminal")
	}
	if IsTerminal(Running) {
		t.Error("Running should not be terminal")
	}
	if IsTerminal(Hibernating) {
		t.Error("Hibernating should not be terminal")
	}
}

func TestActiveStates(t *testing.T) {
	for _, s := range []AgentState{Running, Idle, Provisioning, Stopping} {
		if !IsActive(s) {
			t.Errorf("%s should be active", s)
		}
	}
	for _, s := range []AgentState{Stopped, Hibernating} {
		if IsActive(s) {
			t.Errorf("%s should not be active", s)
		}
	}
}

func TestValidTransitionsFromRunning(t *testing.T) {
	transitions := ValidTransitionsFrom(Running)
	want := map[AgentState]bool{Idle: true, Hibernating: true, Stopping: true, Error: true}
	for _, s := range transitions {
		if !want[s] {
			t.Errorf("unexpected transition target %s", s)
		}
		delete(want, s)
	}
	if len(want) != 0 {
		t.Errorf("missing expected transitions: %v", want)
	}
	for _, s := range transitions {
		if s == Provisioning {
			t.Error("Running must not transition directly to Provisioning")
		}
	}
}

func TestStateByteRoundtrip(t *testing.T) {
	for s := AgentState(1); s <= 7; s++ {
		parsed, ok := AgentStateFromByte(byte(s))
		if !ok {
			t.Fatalf("expected byte %d to parse", s)
		}
		if parsed != s {
			t.Fatalf("roundtrip mismatch for %d", s)
		}
	}
	if _, ok := AgentStateFromByte(0); ok {
		t.Error("expected byte 0 to be invalid")
	}
	if _, ok := AgentStateFromByte(8); ok {
		t.Error("expected byte 8 to be invalid")
	}
}
