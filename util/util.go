package util

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

//go:embed version.txt
var embeddedVersion string

func GetVersion() string {
	return strings.TrimSpace(embeddedVersion)
}

func GetNameAndVersion() string {
	return fmt.Sprintf("%s / %s", Name, GetVersion())
}

func DateTimeFormat() string {
	return "2006-01-02 15:04:05"
}

func PrettyPrint(i interface{}) string {
	s, _ := json.MarshalIndent(i, "", " ")
	return string(s)
}

// NormalizeInstance turns "mastodon.social" or "https://mastodon.social/"
// into "https://mastodon.social".
func NormalizeInstance(instance string) (string, error) {
	instance = strings.TrimSpace(instance)
	if instance == "" {
		return "", fmt.Errorf("instance is empty")
	}
	if !strings.Contains(instance, "://") {
		instance = "https://" + instance
	}
	u, err := url.Parse(instance)
	if err != nil {
		return "", fmt.Errorf("invalid instance %q: %w", instance, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid instance %q: missing host", instance)
	}
	return u.Scheme + "://" + u.Host, nil
}

// InstanceHost returns the host part of an instance URL.
func InstanceHost(instance string) string {
	u, err := url.Parse(instance)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(instance, "https://"), "http://"), "/")
	}
	return u.Host
}
