package config

import "os"

func IsDebug() bool {
	return os.Getenv("GRONK_DEBUG") == "1"
}
