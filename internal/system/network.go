package system

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

const (
	netInfoScript   = "netinfo.sh"
	backlightScript = "backlight.sh"
)

func WiFiIPv4(ctx context.Context, r Runner) (string, error) {
	return netInfo(ctx, r, "wifi-ip")
}

func EthernetIPv4(ctx context.Context, r Runner) (string, error) {
	return netInfo(ctx, r, "ethernet-ip")
}

func netInfo(ctx context.Context, r Runner, what string) (string, error) {
	stdout, stderr, err := r.Run(ctx, netInfoScript, what)
	if err != nil {
		return "", fmt.Errorf("netinfo %s failed: %v: %s", what, err, stderr)
	}
	return strings.TrimSpace(stdout), nil
}

// CompanionURL is the settings page address a phone on the same network
// can open. Wi-Fi wins over Ethernet; an empty string means no address.
func CompanionURL(ctx context.Context, r Runner, port int) (string, error) {
	ip, err := WiFiIPv4(ctx, r)
	if err != nil || ip == "" {
		ip, err = EthernetIPv4(ctx, r)
	}
	if err != nil {
		return "", err
	}
	if ip == "" {
		return "", nil
	}
	return "http://" + ip + ":" + strconv.Itoa(port) + "/", nil
}

// Backlight switches the panel between full and dimmed brightness. The
// face dims while ambient.
func Backlight(ctx context.Context, r Runner, dim bool) error {
	mode := "bright"
	if dim {
		mode = "dim"
	}
	_, stderr, err := r.Run(ctx, backlightScript, mode)
	if err != nil {
		return fmt.Errorf("backlight %s failed: %v: %s", mode, err, stderr)
	}
	return nil
}
