package store

import (
	"context"
	"sync"
)

const (
	DefaultCancelText  = "취소"
	DefaultConfirmText = "확인"
)

// DialogOptions describe a confirmation dialog.
type DialogOptions struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	CancelText  string `json:"cancel_text,omitempty"`
	ConfirmText string `json:"confirm_text,omitempty"`
	OnConfirm   func() `json:"-"`
	OnCancel    func() `json:"-"`
}

// DialogState is what a client renders.
type DialogState struct {
	Open        bool   `json:"open"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CancelText  string `json:"cancel_text"`
	ConfirmText string `json:"confirm_text"`
}

// AlertDialog is a single confirmation dialog. Opening a new one replaces any pending one.
type AlertDialog struct {
	mu      sync.Mutex
	open    bool
	opts    DialogOptions
	gen     uint64
	dismiss func()
}

func NewAlertDialog() *AlertDialog {
	return &AlertDialog{}
}

// Open shows the dialog with opts, replacing the pending one without running its callbacks.
func (d *AlertDialog) Open(opts DialogOptions) {
	d.show(opts, nil)
}

func (d *AlertDialog) show(opts DialogOptions, dismiss func()) uint64 {
	if opts.CancelText == "" {
		opts.CancelText = DefaultCancelText
	}
	if opts.ConfirmText == "" {
		opts.ConfirmText = DefaultConfirmText
	}
	d.mu.Lock()
	prev := d.dismiss
	d.gen++
	gen := d.gen
	d.open = true
	d.opts = opts
	d.dismiss = dismiss
	d.mu.Unlock()

	if prev != nil {
		prev()
	}
	return gen
}

// take closes the dialog and returns what it held. ok is false when nothing was open.
func (d *AlertDialog) take() (opts DialogOptions, dismiss func(), ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return DialogOptions{}, nil, false
	}
	opts, dismiss = d.opts, d.dismiss
	d.open = false
	d.opts = DialogOptions{}
	d.dismiss = nil
	return opts, dismiss, true
}

// Confirm runs the confirm callback and closes the dialog.
func (d *AlertDialog) Confirm() bool {
	opts, _, ok := d.take()
	if ok && opts.OnConfirm != nil {
		opts.OnConfirm()
	}
	return ok
}

// Cancel runs the cancel callback and closes the dialog.
func (d *AlertDialog) Cancel() bool {
	opts, _, ok := d.take()
	if ok && opts.OnCancel != nil {
		opts.OnCancel()
	}
	return ok
}

// Close hides the dialog without running any callback.
func (d *AlertDialog) Close() {
	if _, dismiss, ok := d.take(); ok && dismiss != nil {
		dismiss()
	}
}

func (d *AlertDialog) State() DialogState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return DialogState{
		Open:        d.open,
		Title:       d.opts.Title,
		Description: d.opts.Description,
		CancelText:  d.opts.CancelText,
		ConfirmText: d.opts.ConfirmText,
	}
}

// Ask opens the dialog and waits for an answer: true on confirm, false on cancel
// or when another dialog replaces it.
func (d *AlertDialog) Ask(ctx context.Context, opts DialogOptions) (bool, error) {
	answer := make(chan bool, 1)
	settle := func(v bool) {
		select {
		case answer <- v:
		default:
		}
	}
	onConfirm, onCancel := opts.OnConfirm, opts.OnCancel
	opts.OnConfirm = func() {
		if onConfirm != nil {
			onConfirm()
		}
		settle(true)
	}
	opts.OnCancel = func() {
		if onCancel != nil {
			onCancel()
		}
		settle(false)
	}
	gen := d.show(opts, func() { settle(false) })

	select {
	case v := <-answer:
		return v, nil
	case <-ctx.Done():
		d.mu.Lock()
		if d.open && d.gen == gen {
			d.open = false
			d.opts = DialogOptions{}
			d.dismiss = nil
		}
		d.mu.Unlock()
		return false, ctx.Err()
	}
}
