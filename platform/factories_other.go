//go:build !linux

package platform

import "i2cmitm-go/errcode"

func LinuxI2CFactory() (I2CBusFactory, error) { return nil, errcode.Unsupported }
