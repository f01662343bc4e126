package signature

import (
	"fmt"
	"testing"
	"time"
)

const secret = "whsec_test_secret"

func TestVerifyRoundtrip(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	now := time.Now()

	header := Header(payload, secret, now.Unix())
	if err := Verify(payload, header, secret, now, DefaultTolerance); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyTamperedPayload(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()

	header := Header(payload, secret, now.Unix())
	if err := Verify([]byte(`{"id":"evt_2"}`), header, secret, now, DefaultTolerance); err != ErrNoMatch {
		t.Fatalf("err = %v, want %v", err, ErrNoMatch)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	payload := []byte(`{}`)
	now := time.Now()

	header := Header(payload, "whsec_other", now.Unix())
	if err := Verify(payload, header, secret, now, DefaultTolerance); err != ErrNoMatch {
		t.Fatalf("err = %v, want %v", err, ErrNoMatch)
	}
}

func TestVerifyExpiredTimestamp(t *testing.T) {
	payload := []byte(`{}`)
	now := time.Now()
	old := now.Add(-10 * time.Minute)

	header := Header(payload, secret, old.Unix())
	if err := Verify(payload, header, secret, now, DefaultTolerance); err != ErrTimestampExpired {
		t.Fatalf("err = %v, want %v", err, ErrTimestampExpired)
	}
}

func TestVerifyMultipleSignatures(t *testing.T) {
	payload := []byte(`{"ok":true}`)
	now := time.Now()

	good := Header(payload, secret, now.Unix())
	header := fmt.Sprintf("t=%d,v1=deadbeef,%s", now.Unix(), good[len(fmt.Sprintf("t=%d,", now.Unix())):])
	if err := Verify(payload, header, secret, now, DefaultTolerance); err != nil {
		t.Fatalf("verify with extra v1: %v", err)
	}
}

func TestVerifyHeaderErrors(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name   string
		header string
		want   error
	}{
		{"empty", "", ErrMissingHeader},
		{"no signatures", fmt.Sprintf("t=%d", now.Unix()), ErrMalformedHeader},
		{"no timestamp", "v1=abcdef", ErrMalformedHeader},
		{"bad timestamp", "t=soon,v1=abcdef", ErrMalformedHeader},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := Verify([]byte(`{}`), tc.header, secret, now, DefaultTolerance); err != tc.want {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}
