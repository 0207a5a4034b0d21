// Package testing asserts on log output captured in tests: DecodeLogs
// parses the JSON entries a waitlog.ForTest logger writes, and
// ContainLogEntry matches the decoded entries by key.
package testing

import (
	"encoding/json"
	"io"

	"github.com/onsi/gomega"
	"github.com/onsi/gomega/gstruct"
	"github.com/onsi/gomega/types"
)

// DecodeLogs parses a stream of JSON log entries, as produced by
// waitlog.ForTest.
func DecodeLogs(buf io.Reader) (logs []map[string]interface{}, _ error) {
	d := json.NewDecoder(buf)
	for {
		entry := map[string]interface{}{}
		err := d.Decode(&entry)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, nil
}

func ContainLogEntry(keys gstruct.Keys) types.GomegaMatcher {
	return gomega.ContainElement(gstruct.MatchKeys(gstruct.IgnoreExtras, keys))
}
