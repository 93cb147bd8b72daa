package kvengine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const lockFileName = "LOCK"

// acquireLock writes a best-effort advisory LOCK file to dir, containing a
// fresh UUID token and this process's PID. It fails if the file already
// exists: that is either a live sibling Store on this host, or a stale file
// left by a process that crashed without calling Close (spec §9, Open
// Question 4 — this is hardening, not a substitute for real file locking,
// and does not protect against another program entirely ignoring it).
func acquireLock(dir string) (token string, err error) {
	path := filepath.Join(dir, lockFileName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			existing, _ := os.ReadFile(path)
			return "", badPathErr("Open", fmt.Sprintf("store already locked: %s", string(existing)), nil)
		}
		return "", err
	}
	defer f.Close()

	token = uuid.New().String()
	if _, err := fmt.Fprintf(f, "%s pid=%d\n", token, os.Getpid()); err != nil {
		os.Remove(path)
		return "", err
	}

	return token, nil
}

// releaseLock removes the LOCK file this Store created.
func releaseLock(dir string) error {
	return os.Remove(filepath.Join(dir, lockFileName))
}
