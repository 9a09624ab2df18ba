package oracle

import (
	"fmt"
	"strings"

	"github.com/kuitang/bloglist-e2e/internal/driver"
	"github.com/kuitang/bloglist-e2e/internal/errs"
)

// ExpectDialog returns a dialog handler that accepts a dialog of type kind
// whose message contains substr. Any other dialog is dismissed and reported
// as an errs.DialogContract error.
func ExpectDialog(kind, substr string) func(driver.Dialog) error {
	return func(d driver.Dialog) error {
		if d.Type() != kind || !strings.Contains(d.Message(), substr) {
			dismissErr := d.Dismiss()
			return errs.Wrap(errs.DialogContract,
				fmt.Sprintf("expected %s dialog containing %q, got %s dialog %q", kind, substr, d.Type(), d.Message()),
				dismissErr)
		}
		if err := d.Accept(); err != nil {
			return errs.Wrap(errs.Internal, "accept dialog", err)
		}
		return nil
	}
}
