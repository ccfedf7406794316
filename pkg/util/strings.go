package util

import (
    "strconv"
    "strings"
)

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
    if s == "" {
        return def
    }
    v, err := strconv.Atoi(s)
    if err != nil {
        return def
    }
    return v
}

// ParseFloatDefault parses string to float64 or returns default if empty/invalid.
func ParseFloatDefault(s string, def float64) float64 {
    if s == "" {
        return def
    }
    v, err := strconv.ParseFloat(s, 64)
    if err != nil {
        return def
    }
    return v
}

// ParseBoolDefault accepts 1/0, true/false, yes/no.
func ParseBoolDefault(s string, def bool) bool {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "1", "true", "yes":
        return true
    case "0", "false", "no":
        return false
    }
    return def
}
