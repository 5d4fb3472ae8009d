package config

import "i2cmitm-go/drivers/bq24193"

// DefaultPath is where serve looks for the config file unless told otherwise.
const DefaultPath = "config/i2c_mitm/i2c_mitm.ini"

// Service ports served by default.
const (
	PortI2C    = "i2c"
	PortI2CPcv = "i2c:pcv"
)

// Default returns the stock settings: 4200 mV with the stock REG04 byte.
// VoltageConfig is deliberately not recomputed from Voltage here.
func Default() Config {
	return Config{
		Voltage:       bq24193.ChargeVoltageDefault,
		VoltageConfig: bq24193.ChargeVoltageStockCode,
		Ports:         []string{PortI2C, PortI2CPcv},
	}
}
