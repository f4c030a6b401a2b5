package call

import "testing"

func validAuth() string {
	return "capv1_" + "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
}

func TestInviteAcceptEnd(t *testing.T) {
	m := New()
	coords := MediaCoords{Tracks: []Track{{Name: "audio0", Codec: "opus"}}}

	s, err := m.Invite("peer1", "group1", coords)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if s.Status != StatusOffered {
		t.Fatalf("status = %v, want Offered", s.Status)
	}

	accepted, err := m.Accept(s.CallID, validAuth())
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != StatusAccepted {
		t.Fatalf("status = %v, want Accepted", accepted.Status)
	}

	m.RecordRx(s.CallID)
	if got := m.Snapshot().Status; got != StatusActive {
		t.Fatalf("status after first rx = %v, want Active", got)
	}

	ended, err := m.End(s.CallID)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if ended.Status != StatusEnded {
		t.Fatalf("status = %v, want Ended", ended.Status)
	}
	if m.Active() {
		t.Fatal("machine should be idle after end")
	}
}

func TestInviteVideoRejected(t *testing.T) {
	m := New()
	coords := MediaCoords{Tracks: []Track{{Name: "video0", Codec: "vp8"}}}
	_, err := m.Invite("peer1", "group1", coords)
	if err != ErrUnsupportedVideo {
		t.Fatalf("err = %v, want ErrUnsupportedVideo", err)
	}
	if m.Active() {
		t.Fatal("machine should remain idle")
	}
}

func TestSecondInviteBusy(t *testing.T) {
	m := New()
	coords := MediaCoords{Tracks: []Track{{Name: "audio0", Codec: "opus"}}}
	if _, err := m.Invite("peer1", "group1", coords); err != nil {
		t.Fatalf("first invite: %v", err)
	}
	_, err := m.Invite("peer2", "group2", coords)
	if err != ErrBusy {
		t.Fatalf("err = %v, want ErrBusy", err)
	}
}

func TestAcceptBadAuthReturnsToIdle(t *testing.T) {
	m := New()
	coords := MediaCoords{Tracks: []Track{{Name: "audio0", Codec: "opus"}}}
	s, _ := m.Invite("peer1", "group1", coords)

	_, err := m.Accept(s.CallID, "not-a-token")
	if err != ErrAuthFailed {
		t.Fatalf("err = %v, want ErrAuthFailed", err)
	}
	if m.Active() {
		t.Fatal("machine should return to idle on auth failure")
	}
}

func TestRejectReturnsToIdle(t *testing.T) {
	m := New()
	coords := MediaCoords{Tracks: []Track{{Name: "audio0", Codec: "opus"}}}
	s, _ := m.Invite("peer1", "group1", coords)
	if err := m.Reject(s.CallID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if m.Active() {
		t.Fatal("machine should be idle after reject")
	}
}

func TestValidRelayAuth(t *testing.T) {
	if !ValidRelayAuth(validAuth()) {
		t.Fatal("expected valid token to pass")
	}
	cases := []string{"", "capv1_short", "wrongprefix_0123456789abcdef0123456789abcdef0123456789abcdef0123456789ab"}
	for _, c := range cases {
		if ValidRelayAuth(c) {
			t.Fatalf("expected %q to be invalid", c)
		}
	}
}
