package data

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

type substitutionSet map[string]ldvalue.Value

// expandConstants replaces every "<name>" in the document with the value of the constant of
// that name from the document's top-level "constants" map.
func expandConstants(originalData []byte) ([]byte, error) {
	var substs struct {
		Constants substitutionSet `json:"constants"`
	}
	if err := ParseJSONOrYAML(originalData, &substs); err != nil {
		return nil, err
	}
	if len(substs.Constants) == 0 {
		return originalData, nil
	}
	jsonData, err := ToJSON(originalData)
	if err != nil {
		return nil, err
	}
	return replaceVariables(jsonData, substs.Constants), nil
}

// makeParameterPermutations accepts either a list of parameter sets, which is returned as it
// is, or a list of lists, in which case the result has one set for every combination that
// takes one set from each list.
func makeParameterPermutations(paramsData []json.RawMessage) ([]substitutionSet, error) {
	if len(paramsData) == 0 {
		return nil, nil
	}
	allData, _ := json.Marshal(paramsData)
	if ldvalue.Parse(paramsData[0]).Type() == ldvalue.ObjectType {
		var list []substitutionSet
		if err := json.Unmarshal(allData, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	if ldvalue.Parse(paramsData[0]).Type() != ldvalue.ArrayType {
		return nil, errors.New("unable to parse parameters - must be an array of objects or an array of arrays")
	}
	var lists [][]substitutionSet
	if err := json.Unmarshal(allData, &lists); err != nil {
		return nil, err
	}
	for _, l := range lists {
		if len(l) == 0 {
			return nil, errors.New("unable to parse parameters - a list of parameter sets cannot be empty")
		}
	}
	indices := make([]int, len(lists))
	var result []substitutionSet
	for {
		mergedSet := make(substitutionSet)
		for i := 0; i < len(lists); i++ {
			thisSet := lists[i][indices[i]]
			for k, v := range thisSet {
				mergedSet[k] = v
			}
		}
		result = append(result, mergedSet)
		incrementPos := 0
		for incrementPos < len(lists) {
			indices[incrementPos]++
			if indices[incrementPos] < len(lists[incrementPos]) {
				break
			}
			indices[incrementPos] = 0
			incrementPos++
		}
		if incrementPos == len(lists) {
			return result, nil
		}
	}
}

func replaceVariables(originalData []byte, substs substitutionSet) []byte {
	str := string(originalData)
	str = strings.ReplaceAll(str, `\u003c`, "<")
	str = strings.ReplaceAll(str, `\u003e`, ">")
	for name, value := range substs {
		typedValueStr := value.JSONString()
		str = strings.ReplaceAll(str, `"<`+name+`>"`, typedValueStr)
		interpolatedValueStr := typedValueStr
		if value.IsString() {
			interpolatedValueStr = value.StringValue()
		}
		str = strings.ReplaceAll(str, "<"+name+">", interpolatedValueStr)
	}
	return []byte(str)
}

// paramString is how a parameter value appears in a generated case name.
func paramString(v ldvalue.Value) string {
	if v.IsString() {
		return v.StringValue()
	}
	return v.JSONString()
}
