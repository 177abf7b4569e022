package stf

import "errors"

var (
	ErrInvalidMagic     = errors.New("invalid STF magic")
	ErrUnsupportedMajor = errors.New("unsupported STF major version")
	ErrCorruptFile      = errors.New("corrupt STF file")
)
