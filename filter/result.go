package filter

import (
	"fmt"

	"github.com/huykn/remote-filter/binary"
)

// Status is the outcome code written at the head of every response.
type Status int8

// Response status codes.
const (
	StatusPass          Status = 0
	StatusUnknownFilter Status = 1
	StatusCodecError    Status = 2
	StatusFilterError   Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusUnknownFilter:
		return "unknown_filter"
	case StatusCodecError:
		return "codec_error"
	case StatusFilterError:
		return "filter_error"
	default:
		return fmt.Sprintf("status(%d)", int8(s))
	}
}

// Result is the outcome of one invocation: either the filter's verdict or a fault.
type Result struct {
	Status  Status
	Passed  bool
	Message string
}

// Pass returns a successful result carrying the filter's verdict.
func Pass(passed bool) Result {
	return Result{Status: StatusPass, Passed: passed}
}

// Fault returns a failed result.
func Fault(status Status, message string) Result {
	return Result{Status: status, Message: message}
}

// IsFault reports whether the invocation failed.
func (r Result) IsFault() bool {
	return r.Status != StatusPass
}

// Encode writes the response:
//
//	status:int8 | Pass: result:bool | otherwise: message:string
func (r Result) Encode(w *binary.Writer) error {
	if err := w.WriteErrorCode(int8(r.Status)); err != nil {
		return err
	}
	if r.Status == StatusPass {
		return w.WriteBool(r.Passed)
	}
	return w.WriteString(r.Message)
}

// DecodeResult reads a response written by Result.Encode.
func DecodeResult(r *binary.Reader) (Result, error) {
	code, err := r.ReadInt8()
	if err != nil {
		return Result{}, err
	}

	status := Status(code)
	switch status {
	case StatusPass:
		passed, err := r.ReadBool()
		if err != nil {
			return Result{}, err
		}
		return Pass(passed), nil
	case StatusUnknownFilter, StatusCodecError, StatusFilterError:
		msg, err := r.ReadString()
		if err != nil {
			return Result{}, err
		}
		return Fault(status, msg), nil
	default:
		return Result{}, fmt.Errorf("%w: unknown status %d", binary.ErrMalformed, code)
	}
}
