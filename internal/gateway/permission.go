package gateway

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/pxr-io/block-gateway/internal/config"
	"github.com/pxr-io/block-gateway/internal/model"
)

// selfBucket is the permission bucket used when caller and callee are the
// same block.
const selfBucket = "self"

// PermissionEvaluator evaluates the static authorization matrix for implicit
// self-originated calls: (bucket, method, operator type) → ordered allowed
// path patterns. Absence at any level is a deny, never a lookup fault.
type PermissionEvaluator struct {
	table map[string]map[string]map[string][]*regexp.Regexp
}

// NewPermissionEvaluator compiles the configured matrix once at startup.
func NewPermissionEvaluator(matrix config.PermissionMatrix) (*PermissionEvaluator, error) {
	table := make(map[string]map[string]map[string][]*regexp.Regexp, len(matrix))
	for bucket, methods := range matrix {
		table[bucket] = make(map[string]map[string][]*regexp.Regexp, len(methods))
		for method, opTypes := range methods {
			m := strings.ToUpper(method)
			table[bucket][m] = make(map[string][]*regexp.Regexp, len(opTypes))
			for opType, patterns := range opTypes {
				compiled := make([]*regexp.Regexp, 0, len(patterns))
				for _, p := range patterns {
					re, err := regexp.Compile(p)
					if err != nil {
						return nil, fmt.Errorf("permission pattern %q for %s/%s/%s: %w", p, bucket, m, opType, err)
					}
					compiled = append(compiled, re)
				}
				table[bucket][m][opType] = compiled
			}
		}
	}
	return &PermissionEvaluator{table: table}, nil
}

// Check allows the call when any configured pattern for the resolved bucket,
// method, and operator type matches toPath.
func (e *PermissionEvaluator) Check(from, to *model.Catalog, method string, opType model.OperatorType, toPath string) error {
	bucket := to.ActorType
	if from.Code == to.Code {
		bucket = selfBucket
	}

	denied := newError(KindPermissionDenied, http.StatusUnauthorized,
		fmt.Sprintf("operator is not permitted to call %s %s", method, toPath))

	methods, ok := e.table[bucket]
	if !ok {
		return denied
	}
	opTypes, ok := methods[strings.ToUpper(method)]
	if !ok {
		return denied
	}
	patterns, ok := opTypes[opType.String()]
	if !ok {
		return denied
	}
	for _, re := range patterns {
		if re.MatchString(toPath) {
			return nil
		}
	}
	return denied
}
