package payment

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Fake approves every payment it created, once. It backs local runs without
// provider credentials.
type Fake struct {
	mu        sync.Mutex
	returnURL string
	intents   map[string]Request
	status    string
}

func NewFake(returnURL string) *Fake {
	return &Fake{
		returnURL: returnURL,
		intents:   make(map[string]Request),
		status:    StatusCompleted,
	}
}

// SetCaptureStatus changes the status later captures report.
func (f *Fake) SetCaptureStatus(status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

func (f *Fake) Create(_ context.Context, req Request) (*Intent, error) {
	id := "FAKE-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16])

	f.mu.Lock()
	f.intents[id] = req
	f.mu.Unlock()

	return &Intent{ID: id, ApprovalURL: f.returnURL + "?token=" + url.QueryEscape(id)}, nil
}

func (f *Fake) Capture(_ context.Context, id string) (*Capture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.intents[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPayment, id)
	}
	if f.status == StatusCompleted {
		delete(f.intents, id)
	}

	return &Capture{ID: id, Status: f.status}, nil
}
