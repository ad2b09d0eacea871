package mqtt

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// validateTopicPattern checks a topic with {param} placeholders.
// Wildcards must be expressed as parameters; '#' is rejected outright.
func validateTopicPattern(topic string) error {
	if topic == "" {
		return errors.New("topic cannot be empty")
	}

	if strings.HasPrefix(topic, "/") {
		return errors.New("leading slash is not allowed")
	}

	if strings.HasSuffix(topic, "/") {
		return errors.New("trailing slash is not allowed")
	}

	for segment := range strings.SplitSeq(topic, "/") {
		if segment == "" {
			return errors.New("empty segments are not allowed")
		}

		if strings.Contains(segment, "#") {
			return errors.New("multi-level wildcard '#' is not supported")
		}

		if strings.Contains(segment, "+") {
			return errors.New("wildcard '+' is not supported, use {param}")
		}

		if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
			name := segment[1 : len(segment)-1]
			if !isValidParameterName(name) {
				return fmt.Errorf("invalid parameter name '%s'", name)
			}
		} else if strings.ContainsAny(segment, "{}") {
			return errors.New("invalid parameter syntax, use {paramName}")
		}
	}

	return nil
}

func isValidParameterName(name string) bool {
	if name == "" {
		return false
	}

	for i, r := range name {
		letter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if i == 0 && !letter {
			return false
		}

		if !letter && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}

	return true
}

// topicParams returns the parameter names of a validated pattern, in order.
func topicParams(topic string) []string {
	var names []string

	for segment := range strings.SplitSeq(topic, "/") {
		if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
			names = append(names, segment[1:len(segment)-1])
		}
	}

	return names
}

// convertTopicToMQTT turns devices/{deviceKey}/telemetry into devices/+/telemetry.
func convertTopicToMQTT(topic string) string {
	segments := strings.Split(topic, "/")
	for i, segment := range segments {
		if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
			segments[i] = "+"
		}
	}

	return strings.Join(segments, "/")
}

// TopicParam extracts the value of a {param} segment from a concrete topic.
// It returns "" if the topic does not match the pattern's shape.
func TopicParam(pattern, topic, name string) string {
	ps := strings.Split(pattern, "/")
	ts := strings.Split(topic, "/")
	if len(ps) != len(ts) {
		return ""
	}

	for i, segment := range ps {
		if segment == "{"+name+"}" {
			return ts[i]
		}
	}

	return ""
}

func validateQoS(qos QoS) error {
	if qos > QoSExactlyOnce {
		return errors.New("qos must be 0, 1, or 2")
	}

	return nil
}

func validateParameters(topic string, documented []TopicParameter) error {
	found := map[string]struct{}{}
	for _, name := range topicParams(topic) {
		found[name] = struct{}{}
	}

	seen := map[string]struct{}{}
	for _, p := range documented {
		if p.Name == "" || p.Description == "" {
			return fmt.Errorf("parameter name and description required for topic %s", topic)
		}

		if _, ok := found[p.Name]; !ok {
			return fmt.Errorf("documented parameter %s not found in topic", p.Name)
		}

		seen[p.Name] = struct{}{}
	}

	for name := range found {
		if _, ok := seen[name]; !ok {
			return fmt.Errorf("topic parameter %s not documented", name)
		}
	}

	return nil
}

func validateCommon(operationID, summary, group string, messageType any, qos QoS) error {
	switch {
	case operationID == "":
		return errors.New("operationID is required")
	case summary == "":
		return errors.New("summary is required")
	case group == "":
		return errors.New("group is required")
	case messageType == nil:
		return errors.New("messageType is required")
	}

	return validateQoS(qos)
}
