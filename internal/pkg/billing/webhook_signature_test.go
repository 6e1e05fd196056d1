package billing

import (
	"fmt"
	"testing"
	"time"
)

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_123","type":"invoice.payment_succeeded"}`)
	secret := "whsec_top-secret"
	now := time.Unix(1_700_000_000, 0)

	header := SignPayload(payload, secret, now)
	if !verifySignatureAt(payload, header, secret, now, DefaultSignatureTolerance) {
		t.Fatalf("expected valid signature to verify")
	}

	if verifySignatureAt(payload, header, "whsec_other", now, DefaultSignatureTolerance) {
		t.Fatalf("expected wrong secret to fail")
	}
	if verifySignatureAt(payload, "", secret, now, DefaultSignatureTolerance) {
		t.Fatalf("expected empty header to fail")
	}
	if verifySignatureAt(payload, header, "", now, DefaultSignatureTolerance) {
		t.Fatalf("expected empty secret to fail")
	}
}

func TestVerifyWebhookSignature_AnyByteFlipFails(t *testing.T) {
	payload := []byte(`{"id":"evt_456","data":{"object":{"customer":"cus_1"}}}`)
	secret := "whsec_flip"
	now := time.Unix(1_700_000_000, 0)
	header := SignPayload(payload, secret, now)

	for i := range payload {
		mutated := append([]byte(nil), payload...)
		mutated[i] ^= 0x01
		if verifySignatureAt(mutated, header, secret, now, DefaultSignatureTolerance) {
			t.Fatalf("expected flipped byte %d to invalidate signature", i)
		}
	}
}

func TestVerifyWebhookSignature_Tolerance(t *testing.T) {
	payload := []byte(`{}`)
	secret := "whsec_skew"
	signedAt := time.Unix(1_700_000_000, 0)
	header := SignPayload(payload, secret, signedAt)

	if !verifySignatureAt(payload, header, secret, signedAt.Add(4*time.Minute), DefaultSignatureTolerance) {
		t.Fatalf("expected signature within tolerance to verify")
	}
	if verifySignatureAt(payload, header, secret, signedAt.Add(6*time.Minute), DefaultSignatureTolerance) {
		t.Fatalf("expected stale timestamp to fail")
	}
	if verifySignatureAt(payload, header, secret, signedAt.Add(-6*time.Minute), DefaultSignatureTolerance) {
		t.Fatalf("expected future timestamp to fail")
	}
}

func TestVerifyWebhookSignature_MultipleCandidates(t *testing.T) {
	payload := []byte(`{"id":"evt_789"}`)
	secret := "whsec_multi"
	now := time.Unix(1_700_000_000, 0)

	valid := SignPayload(payload, secret, now)
	// Extra stale candidate from a rotated secret must not break the match.
	header := fmt.Sprintf("%s,v1=%064x", valid, 0)
	if !verifySignatureAt(payload, header, secret, now, DefaultSignatureTolerance) {
		t.Fatalf("expected one matching candidate to be enough")
	}
}

func TestVerifyWebhookSignature_MalformedHeader(t *testing.T) {
	payload := []byte(`{}`)
	secret := "whsec_bad"
	now := time.Unix(1_700_000_000, 0)

	for _, header := range []string{
		"v1=deadbeef",
		"t=not-a-number,v1=deadbeef",
		fmt.Sprintf("t=%d", now.Unix()),
		"garbage",
	} {
		if verifySignatureAt(payload, header, secret, now, DefaultSignatureTolerance) {
			t.Fatalf("expected malformed header %q to fail", header)
		}
	}
}
