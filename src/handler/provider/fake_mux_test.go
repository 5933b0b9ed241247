package provider

import "context"

// fakeMux is a minimal in-memory multiplexer.Multiplexer stand-in, grounded
// on the teacher's habit of hand-rolled fakes over a mocking library for
// small capability interfaces (see pty_backend_test.go's style).
type fakeMux struct {
	history   string
	sentKeys  []string
	historyErr error
}

func (f *fakeMux) CreateWindow(ctx context.Context, session, window, terminalID string) error {
	return nil
}
func (f *fakeMux) DestroyWindow(ctx context.Context, session, window string) error { return nil }

func (f *fakeMux) SendKeys(ctx context.Context, session, window, text string) error {
	f.sentKeys = append(f.sentKeys, text)
	return nil
}

func (f *fakeMux) GetHistory(ctx context.Context, session, window string, tailLines int) (string, error) {
	if f.historyErr != nil {
		return "", f.historyErr
	}
	return f.history, nil
}

func (f *fakeMux) HasWindow(ctx context.Context, session, window string) (bool, error) {
	return true, nil
}
