package types

import (
	"errors"
	"fmt"
)

// Result is a driver-side status value: module in bits 0..8, description above.
// A non-zero Result is an error and is forwarded to clients untouched.
type Result uint32

const (
	ResultSuccess Result = 0

	ModuleI2C = 101
)

func MakeResult(module, description uint32) Result {
	return Result(module&0x1FF | description<<9)
}

func (r Result) Module() uint32      { return uint32(r) & 0x1FF }
func (r Result) Description() uint32 { return uint32(r) >> 9 }

func (r Result) Error() string {
	return fmt.Sprintf("result 0x%08x (%04d-%04d)", uint32(r), 2000+r.Module(), r.Description())
}

// ResultOf renders any error as a Result for logging. Non-Result errors map
// to a generic i2c failure so that log lines always carry a value.
func ResultOf(err error) Result {
	if err == nil {
		return ResultSuccess
	}
	var r Result
	if errors.As(err, &r) {
		return r
	}
	return MakeResult(ModuleI2C, 0)
}
