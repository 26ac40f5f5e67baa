package config

import (
	"os"
	"strconv"
	"strings"
)

// ApplyEnv overlays TASKPAD_* environment variables on top of a loaded
// config. Unset variables leave the config untouched.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("TASKPAD_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("TASKPAD_DATA_DIR"); v != "" {
		c.Store.DataDir = v
	}
	if v := getEnvInt("TASKPAD_LOCK_TIMEOUT_MS"); v > 0 {
		c.Store.LockTimeoutMS = v
	}
	if v, ok := getEnvBool("TASKPAD_STORE_STRICT"); ok {
		c.Store.Strict = v
	}
	if v, ok := getEnvBool("TASKPAD_COOKIE_SECURE"); ok {
		c.Server.CookieSecure = v
	}
	if v, ok := getEnvBool("TASKPAD_DEV_STATIC"); ok {
		c.Static.UseDisk = v
	}
}

func getEnvInt(key string) int {
	val := os.Getenv(key)
	if val == "" {
		return 0
	}
	num, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return num
}

func getEnvBool(key string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes":
		return true, true
	case "0", "false", "no":
		return false, true
	}
	return false, false
}
