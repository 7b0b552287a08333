// Package faults defines errors returned when a mint request or the ownership program rejects
// its input
package faults

import (
	"fmt"

	"github.com/pkg/errors"
)

// ProgramError is a custom error raised by the ownership program. Codes follow the anchor
// convention of starting user errors at 6000.
type ProgramError struct {
	Code uint32
	Name string
	Msg  string
}

func (e *ProgramError) Error() string {
	return fmt.Sprintf("custom program error: %#x (%s: %s)", e.Code, e.Name, e.Msg)
}

// ErrInvalidServerSigner is returned when the admin or update authority is not the configured admin key
var ErrInvalidServerSigner = &ProgramError{Code: 6000, Name: "InvalidServerSigner", Msg: "Invalid server signer"}

// ErrInvalidProgram is returned when a supplied account or program does not match its derived or expected address
var ErrInvalidProgram = &ProgramError{Code: 6001, Name: "InvalidProgram", Msg: "Invalid program ID"}

var ErrInvalidTicketID = errors.New("ticket id must be a 16 byte uuid")

var ErrAlreadyMinted = errors.New("an ownership nft was already minted for this ticket")

var ErrUnknownTicket = errors.New("no ownership nft is known for this ticket")

// ProgramErrorByCode returns the program error with the given code, or nil.
func ProgramErrorByCode(code uint32) *ProgramError {
	for _, e := range []*ProgramError{ErrInvalidServerSigner, ErrInvalidProgram} {
		if e.Code == code {
			return e
		}
	}
	return nil
}
