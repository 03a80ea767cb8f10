// Package access decides whether an actor may read or write a record.
//
// Rules are evaluated in order and the first match wins:
//  1. admins have full access to every record
//  2. the owner of a record (the student of a grade or payment, the account itself) may read it
//  3. teachers may write (and so read) any grade record
//  4. announcements are readable by the roles their audience targets
//  5. any role may read courses
//  6. an account owner may write their own account (password, profile)
//  7. teachers may create announcements and edit the ones they created
//  8. everything else is denied
package access

import (
	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/account"
)

var ErrForbidden = core.NewForbiddenError("permission denied")

type Action uint8

const (
	Read Action = iota + 1
	Write
)

func (a Action) String() string {
	if a == Write {
		return "write"
	}
	return "read"
}

type Kind string

const (
	KindAccount      Kind = "account"
	KindCourse       Kind = "course"
	KindGrade        Kind = "grade"
	KindPayment      Kind = "payment"
	KindAnnouncement Kind = "announcement"
)

// Audiences an announcement may target.
const (
	AudienceAll      = "all"
	AudienceStudents = "students"
	AudienceTeachers = "teachers"
	AudienceAdmin    = "admin"
)

// Actor is the authenticated caller.
type Actor = account.Actor

func ActorOf(acc account.Account) Actor {
	return acc.Actor()
}

// Target describes the record being accessed.
type Target struct {
	Kind      Kind
	OwnerID   string // the record's subject: a grade's or payment's student, the account itself
	CreatorID string // announcements only; empty when creating
	Audience  string // announcements only
}

type rule func(actor Actor, action Action, target Target) bool

var rules = []rule{
	// 1. admin
	func(actor Actor, _ Action, _ Target) bool {
		return actor.Role == account.RoleAdmin
	},
	// 2. owner read
	func(actor Actor, action Action, target Target) bool {
		return action == Read && target.OwnerID != "" && actor.ID == target.OwnerID
	},
	// 3. teacher grade write
	func(actor Actor, _ Action, target Target) bool {
		return actor.Role == account.RoleTeacher && target.Kind == KindGrade
	},
	// 4. announcement visibility
	func(actor Actor, action Action, target Target) bool {
		return action == Read && target.Kind == KindAnnouncement && CanSee(actor.Role, target.Audience)
	},
	// 5. course read
	func(actor Actor, action Action, target Target) bool {
		return action == Read && target.Kind == KindCourse && actor.Role.IsValid()
	},
	// 6. account self-service
	func(actor Actor, action Action, target Target) bool {
		return action == Write && target.Kind == KindAccount && target.OwnerID != "" && actor.ID == target.OwnerID
	},
	// 7. announcement authoring
	func(actor Actor, action Action, target Target) bool {
		return action == Write && target.Kind == KindAnnouncement && actor.Role == account.RoleTeacher &&
			(target.CreatorID == "" || target.CreatorID == actor.ID)
	},
}

// Allowed reports whether actor may perform action on target.
func Allowed(actor Actor, action Action, target Target) bool {
	if actor.ID == "" {
		return false
	}
	for _, r := range rules {
		if r(actor, action, target) {
			return true
		}
	}
	return false
}

// Authorize returns ErrForbidden when actor may not perform action on target.
func Authorize(actor Actor, action Action, target Target) error {
	if Allowed(actor, action, target) {
		return nil
	}
	return ErrForbidden
}

// AuthorizeAccountWrite is the account.Authorizer backed by these rules.
// An empty ownerID targets an account that does not exist yet, which only admins may write.
func AuthorizeAccountWrite(actor Actor, ownerID string) error {
	return Authorize(actor, Write, Target{Kind: KindAccount, OwnerID: ownerID})
}

// CanSee reports whether an announcement targeting audience is visible to role.
func CanSee(role account.Role, audience string) bool {
	switch role {
	case account.RoleAdmin:
		return true
	case account.RoleStudent:
		return audience == AudienceAll || audience == AudienceStudents
	case account.RoleTeacher:
		return audience == AudienceAll || audience == AudienceTeachers
	}
	return false
}

// VisibleAudiences lists the audiences role can see.
func VisibleAudiences(role account.Role) []string {
	all := []string{AudienceAll, AudienceStudents, AudienceTeachers, AudienceAdmin}
	visible := make([]string, 0, len(all))
	for _, aud := range all {
		if CanSee(role, aud) {
			visible = append(visible, aud)
		}
	}
	return visible
}
