package paper

import (
	"strings"
	"testing"
)

func TestGenerateCredential(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		wantLen int
	}{
		{name: "requested length", length: 24, wantLen: 24},
		{name: "below floor is raised", length: 8, wantLen: MinCredentialLength},
		{name: "zero is raised", length: 0, wantLen: MinCredentialLength},
		{name: "long", length: 64, wantLen: 64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred, err := GenerateCredential(tt.length)
			if err != nil {
				t.Fatalf("GenerateCredential() error = %v", err)
			}
			if len(cred) != tt.wantLen {
				t.Errorf("GenerateCredential() len = %d, want %d", len(cred), tt.wantLen)
			}
			for _, c := range cred {
				if !strings.ContainsRune(credentialAlphabet, c) {
					t.Errorf("GenerateCredential() yielded %q outside the alphabet", c)
				}
			}
		})
	}

	// two generations must not collide
	c1, _ := GenerateCredential(24)
	c2, _ := GenerateCredential(24)
	if c1 == c2 {
		t.Errorf("GenerateCredential() returned the same credential twice: %q", c1)
	}
}

func TestHashVerifyCredential(t *testing.T) {
	plaintext, err := GenerateCredential(24)
	if err != nil {
		t.Fatalf("GenerateCredential() error = %v", err)
	}

	hash, err := HashCredential(plaintext)
	if err != nil {
		t.Fatalf("HashCredential() error = %v", err)
	}
	if !strings.HasPrefix(string(hash), "$argon2id$") {
		t.Errorf("HashCredential() = %s, want a PHC argon2id string", hash)
	}

	// fresh salt: same plaintext, different hash
	hash2, err := HashCredential(plaintext)
	if err != nil {
		t.Fatalf("HashCredential() error = %v", err)
	}
	if string(hash) == string(hash2) {
		t.Error("HashCredential() returned identical hashes for two calls")
	}

	tests := []struct {
		name      string
		plaintext string
		hash      []byte
		want      bool
	}{
		{name: "match", plaintext: plaintext, hash: hash, want: true},
		{name: "match on rehash", plaintext: plaintext, hash: hash2, want: true},
		{name: "mismatch", plaintext: plaintext + "x", hash: hash, want: false},
		{name: "empty plaintext", plaintext: "", hash: hash, want: false},
		{name: "nil hash", plaintext: plaintext, hash: nil, want: false},
		{name: "empty hash", plaintext: plaintext, hash: []byte{}, want: false},
		{name: "not a PHC string", plaintext: plaintext, hash: []byte("lmaooolol"), want: false},
		{name: "wrong algorithm", plaintext: plaintext, hash: []byte("$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$a2V5"), want: false},
		{name: "bad version", plaintext: plaintext, hash: []byte("$argon2id$v=16$m=65536,t=1,p=4$c2FsdA$a2V5"), want: false},
		{name: "bad params", plaintext: plaintext, hash: []byte("$argon2id$v=19$m=lol,t=1,p=4$c2FsdA$a2V5"), want: false},
		{name: "zero param", plaintext: plaintext, hash: []byte("$argon2id$v=19$m=65536,t=0,p=4$c2FsdA$a2V5"), want: false},
		{name: "bad salt encoding", plaintext: plaintext, hash: []byte("$argon2id$v=19$m=65536,t=1,p=4$???$a2V5"), want: false},
		{name: "bad key encoding", plaintext: plaintext, hash: []byte("$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$???"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyCredential(tt.plaintext, tt.hash); got != tt.want {
				t.Errorf("VerifyCredential() = %v, want %v", got, tt.want)
			}
		})
	}
}
