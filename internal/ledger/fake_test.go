package ledger

import (
	"context"
	"sync"
)

type fakeClient struct {
	mu        sync.Mutex
	findCalls int
	valCalls  int
	sig       string
	findErr   error
	valErr    error
}

func (f *fakeClient) FindReference(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++

	return f.sig, f.findErr
}

func (f *fakeClient) ValidateTransfer(context.Context, string, Transfer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.valCalls++

	return f.valErr
}
