package repository

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-kivik/kivik/v4"
)

var (
	ErrNotFound       = errors.New("document not found")
	ErrSecretConflict = errors.New("secret was modified concurrently")
	ErrSecretExists   = errors.New("secret already exists")
)

// BulkUpdateError lists the secrets a bulk write rejected. The other
// secrets of the batch were written.
type BulkUpdateError struct {
	Failed []string
	Err    error
}

func (e *BulkUpdateError) Error() string {
	return fmt.Sprintf("%d secret(s) not updated (%s): %v", len(e.Failed), strings.Join(e.Failed, ", "), e.Err)
}

func (e *BulkUpdateError) Unwrap() error {
	return e.Err
}

func isNotFound(err error) bool {
	return kivik.HTTPStatus(err) == http.StatusNotFound
}

func isConflict(err error) bool {
	return kivik.HTTPStatus(err) == http.StatusConflict
}
