package command

import (
	"testing"

	"github.com/go-logr/logr"

	"github.com/nodepage/bplusdb/catalog"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	cat := catalog.New(t.TempDir(), 32, logr.Discard())
	return NewExecutor(cat, logr.Discard())
}

func TestExecutorInsertAndQuery(t *testing.T) {
	exec := newTestExecutor(t)

	if _, err := exec.Execute(Parse("CREATE TABLE t")); err != nil {
		t.Fatalf("CREATE TABLE error = %v", err)
	}
	if _, err := exec.Execute(Parse("INSERT INTO t KEY 10")); err != nil {
		t.Fatalf("INSERT error = %v", err)
	}

	out, err := exec.Execute(Parse("QUERY FROM t KEY 10"))
	if err != nil {
		t.Fatalf("QUERY error = %v", err)
	}
	if out != "1" {
		t.Errorf("QUERY FROM t KEY 10 = %q, want %q", out, "1")
	}

	out, err = exec.Execute(Parse("QUERY FROM t KEY 11"))
	if err != nil {
		t.Fatalf("QUERY error = %v", err)
	}
	if out != "0" {
		t.Errorf("QUERY FROM t KEY 11 = %q, want %q", out, "0")
	}
}

func TestExecutorEraseRemovesKey(t *testing.T) {
	exec := newTestExecutor(t)

	exec.Execute(Parse("INSERT INTO t KEY 5"))
	if _, err := exec.Execute(Parse("ERASE FROM t KEY 5")); err != nil {
		t.Fatalf("ERASE error = %v", err)
	}
	out, err := exec.Execute(Parse("QUERY FROM t KEY 5"))
	if err != nil {
		t.Fatalf("QUERY error = %v", err)
	}
	if out != "0" {
		t.Errorf("QUERY FROM t KEY 5 after ERASE = %q, want %q", out, "0")
	}
}

func TestExecutorInvalidCommand(t *testing.T) {
	exec := newTestExecutor(t)

	_, err := exec.Execute(Parse("FROBNICATE t"))
	if err != ErrInvalid {
		t.Errorf("Execute(invalid) error = %v, want %v", err, ErrInvalid)
	}
}

func TestExecutorVerifyAndDescribe(t *testing.T) {
	exec := newTestExecutor(t)

	for i := int32(0); i < 10; i++ {
		if _, err := exec.Execute(Parse("INSERT INTO t KEY 0")); err != nil {
			t.Fatalf("INSERT setup error = %v", err)
		}
		_ = i
	}

	sum1, err := exec.Execute(Parse("VERIFY TABLE t"))
	if err != nil {
		t.Fatalf("VERIFY error = %v", err)
	}
	sum2, err := exec.Execute(Parse("VERIFY TABLE t"))
	if err != nil {
		t.Fatalf("second VERIFY error = %v", err)
	}
	if sum1 != sum2 {
		t.Errorf("VERIFY TABLE t is not stable across calls: %q != %q", sum1, sum2)
	}

	desc, err := exec.Execute(Parse("DESCRIBE TABLE t"))
	if err != nil {
		t.Fatalf("DESCRIBE error = %v", err)
	}
	if desc == "" {
		t.Errorf("DESCRIBE TABLE t returned empty output")
	}
}

func TestExecutorDestroyClosesAndRemovesFile(t *testing.T) {
	exec := newTestExecutor(t)

	exec.Execute(Parse("INSERT INTO t KEY 1"))
	if _, err := exec.Execute(Parse("DESTROY TABLE t")); err != nil {
		t.Fatalf("DESTROY error = %v", err)
	}

	// Table reopens empty after destruction.
	out, err := exec.Execute(Parse("QUERY FROM t KEY 1"))
	if err != nil {
		t.Fatalf("QUERY after DESTROY error = %v", err)
	}
	if out != "0" {
		t.Errorf("QUERY FROM t KEY 1 after DESTROY = %q, want %q", out, "0")
	}
}
