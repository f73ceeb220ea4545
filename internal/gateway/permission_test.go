package gateway

import (
	"testing"

	"github.com/pxr-io/block-gateway/internal/config"
	"github.com/pxr-io/block-gateway/internal/model"
)

func testMatrix(t *testing.T) *PermissionEvaluator {
	t.Helper()
	e, err := NewPermissionEvaluator(config.PermissionMatrix{
		"self": {
			"GET": {
				"personal": {`^/info-manage/.*`, `^/binary-manage/download/.*`},
			},
			"POST": {
				"personal": {`^/info-manage/entry$`},
			},
		},
		"pxr-root": {
			"GET": {
				"org-member": {`^/catalog-manage/.*`},
			},
		},
	})
	if err != nil {
		t.Fatalf("NewPermissionEvaluator: %v", err)
	}
	return e
}

func TestPermissionCheck(t *testing.T) {
	e := testMatrix(t)
	self := &model.Catalog{Code: 10, ActorType: "pxr-block"}
	root := &model.Catalog{Code: 1, ActorType: "pxr-root"}

	tests := []struct {
		name    string
		from    *model.Catalog
		to      *model.Catalog
		method  string
		opType  model.OperatorType
		path    string
		allowed bool
	}{
		{"self bucket match", self, self, "GET", model.OperatorPersonal, "/info-manage/list", true},
		{"self second pattern", self, self, "GET", model.OperatorPersonal, "/binary-manage/download/u/1", true},
		{"self no pattern match", self, self, "GET", model.OperatorPersonal, "/secret-manage/x", false},
		{"self wrong method", self, self, "DELETE", model.OperatorPersonal, "/info-manage/list", false},
		{"self wrong operator type", self, self, "GET", model.OperatorManager, "/info-manage/list", false},
		{"actor-type bucket match", self, root, "GET", model.OperatorOrgMember, "/catalog-manage/item", true},
		{"actor-type bucket denies other type", self, root, "GET", model.OperatorPersonal, "/catalog-manage/item", false},
		{"absent bucket denies", self, &model.Catalog{Code: 99, ActorType: "pxr-app"}, "GET", model.OperatorPersonal, "/info-manage/list", false},
		{"method case-insensitive", self, self, "get", model.OperatorPersonal, "/info-manage/list", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.Check(tt.from, tt.to, tt.method, tt.opType, tt.path)
			if tt.allowed && err != nil {
				t.Errorf("expected allow, got %v", err)
			}
			if !tt.allowed {
				ge, ok := AsError(err)
				if !ok || ge.Kind != KindPermissionDenied || ge.Status != 401 {
					t.Errorf("expected PermissionDenied 401, got %v", err)
				}
			}
		})
	}
}

func TestPermissionBadPattern(t *testing.T) {
	_, err := NewPermissionEvaluator(config.PermissionMatrix{
		"self": {"GET": {"personal": {`([`}}},
	})
	if err == nil {
		t.Fatal("expected compile error for invalid pattern")
	}
}
