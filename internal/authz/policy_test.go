package authz

import (
	"testing"

	"github.com/hitoshi/taskdeck/internal/model"
)

func strPtr(s string) *string {
	return &s
}

// --- TaskPolicy テスト ---

func TestTaskPolicy_OwnerCanViewUpdateDelete(t *testing.T) {
	policy := NewTaskPolicy()
	user := &model.User{ID: "user-1"}
	task := &model.Task{ID: "task-1", UserID: strPtr("user-1")}

	for _, action := range []Action{ActionView, ActionUpdate, ActionDelete} {
		if !policy.Allows(user, action, task) {
			t.Errorf("Allows(owner, %s) = false, want true", action)
		}
	}
}

func TestTaskPolicy_NonOwnerIsDenied(t *testing.T) {
	policy := NewTaskPolicy()
	user := &model.User{ID: "user-1"}
	task := &model.Task{ID: "task-1", UserID: strPtr("user-2")}

	for _, action := range []Action{ActionView, ActionUpdate, ActionDelete} {
		if policy.Allows(user, action, task) {
			t.Errorf("Allows(non-owner, %s) = true, want false", action)
		}
	}
}

// 所有者を持たないタスク（v1作成）はv2ポリシーでは誰にも許可されないことを検証
func TestTaskPolicy_OwnerlessTaskIsDenied(t *testing.T) {
	policy := NewTaskPolicy()
	user := &model.User{ID: "user-1"}
	task := &model.Task{ID: "task-1", UserID: nil}

	for _, action := range []Action{ActionView, ActionUpdate, ActionDelete} {
		if policy.Allows(user, action, task) {
			t.Errorf("Allows(user, %s, ownerless task) = true, want false", action)
		}
	}
}

func TestTaskPolicy_ViewAnyAndCreateRequireOnlyAuthentication(t *testing.T) {
	policy := NewTaskPolicy()
	user := &model.User{ID: "user-1"}

	if !policy.Allows(user, ActionViewAny, nil) {
		t.Error("Allows(user, viewAny, nil) = false, want true")
	}
	if !policy.Allows(user, ActionCreate, nil) {
		t.Error("Allows(user, create, nil) = false, want true")
	}
}

func TestTaskPolicy_NilUserIsAlwaysDenied(t *testing.T) {
	policy := NewTaskPolicy()
	task := &model.Task{ID: "task-1", UserID: strPtr("user-1")}

	for _, action := range []Action{ActionViewAny, ActionView, ActionCreate, ActionUpdate, ActionDelete} {
		if policy.Allows(nil, action, task) {
			t.Errorf("Allows(nil, %s) = true, want false", action)
		}
	}
}

func TestTaskPolicy_UnknownActionIsDenied(t *testing.T) {
	policy := NewTaskPolicy()
	user := &model.User{ID: "user-1"}
	task := &model.Task{ID: "task-1", UserID: strPtr("user-1")}

	if policy.Allows(user, Action("restore"), task) {
		t.Error("Allows(user, unknown action) = true, want false")
	}
}

// --- AllowAll テスト ---

func TestAllowAll_PermitsEverything(t *testing.T) {
	policy := NewAllowAll()
	task := &model.Task{ID: "task-1", UserID: strPtr("user-2")}

	for _, action := range []Action{ActionViewAny, ActionView, ActionCreate, ActionUpdate, ActionDelete} {
		if !policy.Allows(nil, action, task) {
			t.Errorf("Allows(nil, %s) = false, want true", action)
		}
	}
}
