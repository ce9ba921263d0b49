package rfb

import (
	"bytes"
	"testing"
)

func TestReverseBits(t *testing.T) {
	cases := map[byte]byte{
		0x00: 0x00,
		0xFF: 0xFF,
		0x01: 0x80,
		0x80: 0x01,
	}
	for in, want := range cases {
		if got := reverseBits(in); got != want {
			t.Errorf("reverseBits(%#x) = %#x, want %#x", in, got, want)
		}
	}
}

func TestDesEncryptChallengeDeterministic(t *testing.T) {
	challenge := bytes.Repeat([]byte{0x42}, challengeSize)
	a, err := desEncryptChallenge(challenge, "secret1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := desEncryptChallenge(challenge, "secret1")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("same challenge+secret should encrypt identically")
	}

	c, err := desEncryptChallenge(challenge, "secret2")
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a, c) {
		t.Error("different secrets should produce different ciphertext")
	}
}

func TestVNCAuthenticateRoundTrip(t *testing.T) {
	conn, err := newLoopback()
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	secret := "mysecret"
	errCh := make(chan error, 1)
	go func() {
		errCh <- vncAuthenticate(conn.server, secret)
	}()

	challenge := make([]byte, challengeSize)
	if _, err := readFull(conn.client, challenge); err != nil {
		t.Fatal(err)
	}
	response, err := desEncryptChallenge(challenge, secret)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := conn.client.Write(response); err != nil {
		t.Fatal(err)
	}

	if err := <-errCh; err != nil {
		t.Fatalf("vncAuthenticate failed: %v", err)
	}
}
