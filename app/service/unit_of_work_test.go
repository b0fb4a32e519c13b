package service

import (
	"context"
	"errors"
	"testing"
)

func TestUnitOfWorkRunCommitsAndRunsHooks(t *testing.T) {
	store := newMemStore()
	ran := false

	err := store.factory().Run(context.Background(), func(uow *UnitOfWork) error {
		uow.AfterCommit(func() { ran = true })
		if ran {
			t.Fatal("hook ran before commit")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran || !store.lastTx().committed {
		t.Fatal("expected commit followed by hook")
	}
}

func TestUnitOfWorkRunRollsBackOnError(t *testing.T) {
	store := newMemStore()
	ran := false
	boom := errors.New("boom")

	err := store.factory().Run(context.Background(), func(uow *UnitOfWork) error {
		uow.AfterCommit(func() { ran = true })
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if ran || store.lastTx().committed || !store.lastTx().rolledBack {
		t.Fatal("expected rollback without hooks")
	}
}

func TestUnitOfWorkRunRollsBackOnPanic(t *testing.T) {
	store := newMemStore()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic to propagate")
		}
		if !store.lastTx().rolledBack {
			t.Fatal("expected rollback on panic")
		}
	}()

	_ = store.factory().Run(context.Background(), func(uow *UnitOfWork) error {
		panic("boom")
	})
}

func TestUnitOfWorkCommitFailureSkipsHooks(t *testing.T) {
	tx := &fakeTx{commitErr: errors.New("deadlock")}
	uow := NewUnitOfWork(tx, Repositories{})
	ran := false
	uow.AfterCommit(func() { ran = true })

	if err := uow.Commit(); err == nil {
		t.Fatal("expected commit error")
	}
	if ran {
		t.Fatal("hook must not run after a failed commit")
	}
	if err := uow.Rollback(); !errors.Is(err, ErrUnitOfWorkFinished) {
		t.Fatalf("expected ErrUnitOfWorkFinished, got %v", err)
	}
}
