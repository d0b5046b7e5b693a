package lutron

import (
	"fmt"
	"strconv"
	"strings"
)

// Constants of the Lutron Integration Protocol as spoken by the hub's
// telnet server.
const (
	// ActionLevel is the OUTPUT action number for zone level.
	ActionLevel = 1

	// PromptMarker is the shell prompt the hub prints before each reply.
	PromptMarker = "GNET>"

	// Reply prefixes. Every reply to an OUTPUT command starts with
	// ReplyOutput; DEVICE events are recognised but never acknowledge a
	// level change.
	ReplyOutput = "~OUTPUT"
	ReplyDevice = "~DEVICE"

	MaxBrightness = 100

	lineTerminator = "\r\n"
)

// Level is a parsed ~OUTPUT reply.
type Level struct {
	Zone   int
	Action int
	Value  float64
}

// SetLevelCommand builds the command that fades zone to brightness
// (0-100) over fadeSeconds.
func SetLevelCommand(zone, brightness, fadeSeconds int) (string, error) {
	if zone < 1 {
		return "", fmt.Errorf("%w: %d", ErrInvalidZone, zone)
	}
	if brightness < 0 || brightness > MaxBrightness {
		return "", fmt.Errorf("%w: %d", ErrInvalidBrightness, brightness)
	}
	if fadeSeconds < 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidFade, fadeSeconds)
	}
	return fmt.Sprintf("#OUTPUT,%d,%d,%d,%d", zone, ActionLevel, brightness, fadeSeconds), nil
}

// QueryLevelCommand builds the command that asks for the level of zone.
func QueryLevelCommand(zone int) (string, error) {
	if zone < 1 {
		return "", fmt.Errorf("%w: %d", ErrInvalidZone, zone)
	}
	return fmt.Sprintf("?OUTPUT,%d,%d", zone, ActionLevel), nil
}

// ExtractResponse picks the reply out of everything the hub printed.
//
// The hub echoes login prompts and its GNET> shell prompt on the same
// lines as real replies, so the first line mentioning ~OUTPUT or ~DEVICE
// wins and anything up to the last prompt on that line is discarded. An
// empty string means the hub printed only noise.
func ExtractResponse(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		if resp := replyText(line); resp != "" {
			return resp
		}
	}
	return ""
}

// ExtractReply is ExtractResponse narrowed to the ~OUTPUT reply for zone.
// The last such line wins, so a late answer to an earlier command about
// another zone is skipped. Without a matching line it falls back to
// ExtractResponse.
func ExtractReply(raw string, zone int) string {
	prefix := outputPrefix(zone)
	found := ""
	for _, line := range strings.Split(raw, "\n") {
		if resp := replyText(line); strings.HasPrefix(resp, prefix) {
			found = resp
		}
	}
	if found != "" {
		return found
	}
	return ExtractResponse(raw)
}

// replyText returns the reply on line with prompts stripped, or "".
func replyText(line string) string {
	if !strings.Contains(line, ReplyOutput) && !strings.Contains(line, ReplyDevice) {
		return ""
	}
	if i := strings.LastIndex(line, PromptMarker); i >= 0 {
		return strings.TrimSpace(line[i+len(PromptMarker):])
	}
	return strings.TrimSpace(line)
}

func outputPrefix(zone int) string {
	return ReplyOutput + "," + strconv.Itoa(zone) + ","
}

// commandZone returns the zone addressed by an OUTPUT command.
func commandZone(command string) (int, bool) {
	parts := strings.SplitN(command, ",", 3)
	if len(parts) < 2 || (parts[0] != "#OUTPUT" && parts[0] != "?OUTPUT") {
		return 0, false
	}
	zone, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	return zone, true
}

// ParseLevel decodes a reply of the form ~OUTPUT,<zone>,<action>,<level>.
func ParseLevel(resp string) (Level, error) {
	if resp == "" {
		return Level{}, ErrNoResponse
	}
	if !strings.HasPrefix(resp, ReplyOutput) {
		return Level{}, fmt.Errorf("%w: %q", ErrUnexpectedResponse, resp)
	}

	parts := strings.Split(resp, ",")
	if len(parts) < 4 {
		return Level{}, fmt.Errorf("%w: %q has %d fields", ErrMalformedResponse, resp, len(parts))
	}

	zone, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Level{}, fmt.Errorf("%w: zone %q", ErrMalformedResponse, parts[1])
	}
	action, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return Level{}, fmt.Errorf("%w: action %q", ErrMalformedResponse, parts[2])
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
	if err != nil {
		return Level{}, fmt.Errorf("%w: level %q", ErrMalformedResponse, parts[3])
	}

	return Level{Zone: zone, Action: action, Value: value}, nil
}

// IsAck reports whether resp acknowledges an OUTPUT command.
func IsAck(resp string) bool {
	return strings.HasPrefix(resp, ReplyOutput)
}

// IsAckFor reports whether resp acknowledges an OUTPUT command for zone.
func IsAckFor(resp string, zone int) bool {
	return strings.HasPrefix(resp, outputPrefix(zone))
}
