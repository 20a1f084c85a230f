package plan

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// DecodeError reports a response that does not match the requested schema.
// Raw is the response exactly as received.
type DecodeError struct {
	Variant Variant
	Raw     string
	Cause   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s plan: %v", e.Variant, e.Cause)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// Decode parses raw as the schema of variant. Decoding is strict: the
// response must be a single JSON object with exactly the variant's keys,
// every value of the declared type, and nothing after it. Nothing is
// repaired or defaulted.
func Decode(variant Variant, raw string) (Plan, error) {
	p, err := decode(variant, raw)
	if err != nil {
		return nil, &DecodeError{Variant: variant, Raw: raw, Cause: err}
	}
	return p, nil
}

func decode(variant Variant, raw string) (Plan, error) {
	members, err := readObject([]byte(raw))
	if err != nil {
		return nil, err
	}

	switch variant {
	case VariantSteps:
		return decodeStepFile(members)
	case VariantScript:
		return decodeScript(members)
	case VariantBundle:
		return decodeBundle(members)
	default:
		return nil, fmt.Errorf("unknown plan variant %q", variant)
	}
}

func decodeStepFile(members []member) (Plan, error) {
	obj, err := requireKeys("response", members, "steps", "files")
	if err != nil {
		return nil, err
	}

	steps, err := decodeStringList("steps", obj["steps"])
	if err != nil {
		return nil, err
	}

	var files FileSet
	if err := files.UnmarshalJSON(obj["files"]); err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}

	return StepFilePlan{Commands: steps, Files: files}, nil
}

func decodeScript(members []member) (Plan, error) {
	obj, err := requireKeys("response", members, "script")
	if err != nil {
		return nil, err
	}

	script, err := decodeString("script", obj["script"])
	if err != nil {
		return nil, err
	}
	return ScriptPlan{Script: script}, nil
}

func decodeBundle(members []member) (Plan, error) {
	obj, err := requireKeys("response", members, "dockerfile", "makefile", "readme", "source_files")
	if err != nil {
		return nil, err
	}

	var b BundlePlan
	if b.Dockerfile, err = decodeString("dockerfile", obj["dockerfile"]); err != nil {
		return nil, err
	}
	if b.Makefile, err = decodeString("makefile", obj["makefile"]); err != nil {
		return nil, err
	}
	if b.Readme, err = decodeString("readme", obj["readme"]); err != nil {
		return nil, err
	}

	var elems *[]json.RawMessage
	if err := json.Unmarshal(obj["source_files"], &elems); err != nil {
		return nil, fmt.Errorf("%q must be an array: %w", "source_files", err)
	}
	if elems == nil {
		return nil, fmt.Errorf("%q must be an array, found null", "source_files")
	}

	seen := map[string]bool{"Dockerfile": true, "Makefile": true, "README.md": true}
	for i, elem := range *elems {
		where := fmt.Sprintf("source_files[%d]", i)
		fileMembers, err := readObject(elem)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", where, err)
		}
		fileObj, err := requireKeys(where, fileMembers, "name", "contents")
		if err != nil {
			return nil, err
		}
		name, err := decodeString(where+".name", fileObj["name"])
		if err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, fmt.Errorf("%s.name: duplicate file %q", where, name)
		}
		seen[name] = true
		contents, err := decodeString(where+".contents", fileObj["contents"])
		if err != nil {
			return nil, err
		}
		b.SourceFiles = append(b.SourceFiles, SourceFile{Name: name, Contents: contents})
	}

	return b, nil
}

type member struct {
	key   string
	value json.RawMessage
}

// readObject reads exactly one JSON object from data and returns its
// members in document order. Duplicate keys and trailing data are errors.
func readObject(data []byte) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty response")
	}
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected a JSON object, found %s", describeToken(tok))
	}

	seen := make(map[string]bool)
	var members []member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected an object key, found %s", describeToken(tok))
		}
		if seen[key] {
			return nil, fmt.Errorf("duplicate key %q", key)
		}
		seen[key] = true

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("value of %q: %w", key, err)
		}
		members = append(members, member{key: key, value: value})
	}

	// closing brace
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after the JSON object")
	}

	return members, nil
}

// requireKeys checks that members has exactly the required keys
func requireKeys(where string, members []member, required ...string) (map[string]json.RawMessage, error) {
	obj := make(map[string]json.RawMessage, len(members))
	for _, m := range members {
		obj[m.key] = m.value
	}

	var unknown []string
	for key := range obj {
		if !slices.Contains(required, key) {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return nil, fmt.Errorf("%s has unknown key(s): %s", where, strings.Join(unknown, ", "))
	}

	for _, key := range required {
		if _, ok := obj[key]; !ok {
			return nil, fmt.Errorf("%s is missing required key %q", where, key)
		}
	}
	return obj, nil
}

func decodeString(name string, raw json.RawMessage) (string, error) {
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%q must be a string: %w", name, err)
	}
	if s == nil {
		return "", fmt.Errorf("%q must be a string, found null", name)
	}
	return *s, nil
}

func decodeStringList(name string, raw json.RawMessage) ([]string, error) {
	var items *[]*string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%q must be an array of strings: %w", name, err)
	}
	if items == nil {
		return nil, fmt.Errorf("%q must be an array of strings, found null", name)
	}

	out := make([]string, len(*items))
	for i, item := range *items {
		if item == nil {
			return nil, fmt.Errorf("%s[%d] must be a string, found null", name, i)
		}
		out[i] = *item
	}
	return out, nil
}

func describeToken(tok json.Token) string {
	switch v := tok.(type) {
	case nil:
		return "null"
	case json.Delim:
		if v == '[' {
			return "an array"
		}
		return fmt.Sprintf("%q", v.String())
	case string:
		return "a string"
	case bool:
		return "a boolean"
	case float64, json.Number:
		return "a number"
	default:
		return fmt.Sprintf("%T", tok)
	}
}
