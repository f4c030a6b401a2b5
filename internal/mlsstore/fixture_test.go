package mlsstore

import "testing"

func TestPlaceholderEngineRoundTrip(t *testing.T) {
	e := NewPlaceholderEngine()

	kp, err := e.BuildKeyPackage()
	if err != nil || len(kp) == 0 {
		t.Fatalf("BuildKeyPackage() = %v, %v", kp, err)
	}

	handle, err := e.ParseKeyPackage(kp)
	if err != nil {
		t.Fatalf("ParseKeyPackage() error: %v", err)
	}

	mlsGroupID, epoch, welcomes, err := e.CreateGroup([]KeyPackageHandle{handle})
	if err != nil {
		t.Fatalf("CreateGroup() error: %v", err)
	}
	if mlsGroupID == "" || epoch != 1 || len(welcomes) != 1 {
		t.Fatalf("CreateGroup() = %q, %d, %d welcomes", mlsGroupID, epoch, len(welcomes))
	}

	ciphertext, err := e.Encrypt(mlsGroupID, 9, []byte("hello"))
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	kind, content, _, err := e.Decrypt(mlsGroupID, ciphertext)
	if err != nil {
		t.Fatalf("Decrypt() error: %v", err)
	}
	if kind != 9 || string(content) != "hello" {
		t.Fatalf("Decrypt() = %d, %q", kind, content)
	}

	if _, _, _, err := e.Decrypt("other-group", ciphertext); err == nil {
		t.Fatal("expected error decrypting with wrong group id")
	}
}

func TestPlaceholderEngineProcessWelcome(t *testing.T) {
	e := NewPlaceholderEngine()
	nostrID, mlsID, epoch, name, err := e.ProcessWelcome([]byte("giftwrap-bytes"))
	if err != nil {
		t.Fatalf("ProcessWelcome() error: %v", err)
	}
	if nostrID == "" || mlsID == "" || epoch != 1 || name == "" {
		t.Fatalf("ProcessWelcome() = %q, %q, %d, %q", nostrID, mlsID, epoch, name)
	}

	if _, _, _, _, err := e.ProcessWelcome(nil); err == nil {
		t.Fatal("expected error for empty welcome")
	}
}
