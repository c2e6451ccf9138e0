package ui

import (
	"io"

	"github.com/pterm/pterm"
)

// Spinner is the loading indicator shown while a guard decision or a
// backend call is pending
type Spinner struct {
	sp *pterm.SpinnerPrinter
}

// StartSpinner starts a spinner on w. When the spinner cannot start the
// returned Spinner is inert.
func StartSpinner(w io.Writer, text string) *Spinner {
	sp, err := pterm.DefaultSpinner.WithWriter(w).WithRemoveWhenDone(true).Start(text)
	if err != nil {
		return &Spinner{}
	}
	return &Spinner{sp: sp}
}

// Stop removes the spinner
func (s *Spinner) Stop() {
	if s.sp != nil {
		_ = s.sp.Stop()
	}
}

// UpdateText changes the spinner message
func (s *Spinner) UpdateText(text string) {
	if s.sp != nil {
		s.sp.UpdateText(text)
	}
}
