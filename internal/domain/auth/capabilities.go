package auth

import "context"

// Assignment is one row of a teacher's teaching scope. SubjectID zero marks a
// homeroom assignment covering the classroom-wide screens.
type Assignment struct {
	ClassroomID int64
	SubjectID   int64
}

type subjectScope struct {
	classroomID int64
	subjectID   int64
}

// Capabilities is the resolved permission set of one user. Every assessment
// screen and the report-card aggregator consult it the same way.
type Capabilities struct {
	UserID    int64
	TeacherID int64
	Role      string

	permissions map[string]struct{}
	scoped      bool
	classrooms  map[int64]struct{}
	homerooms   map[int64]struct{}
	subjects    map[subjectScope]struct{}
}

type CapabilityResolver interface {
	Resolve(ctx context.Context, user UserContext) (Capabilities, error)
}

// NewCapabilities builds the capability set for a role. Assignments are only
// consulted for scoped roles.
func NewCapabilities(user UserContext, teacherID int64, permissions []string, assignments []Assignment) Capabilities {
	caps := Capabilities{
		UserID:      user.UserID,
		TeacherID:   teacherID,
		Role:        user.RoleName,
		permissions: make(map[string]struct{}, len(permissions)),
		scoped:      scopedRoles[user.RoleName],
		classrooms:  map[int64]struct{}{},
		homerooms:   map[int64]struct{}{},
		subjects:    map[subjectScope]struct{}{},
	}
	for _, perm := range permissions {
		caps.permissions[perm] = struct{}{}
	}
	for _, a := range assignments {
		caps.classrooms[a.ClassroomID] = struct{}{}
		if a.SubjectID == 0 {
			caps.homerooms[a.ClassroomID] = struct{}{}
			continue
		}
		caps.subjects[subjectScope{classroomID: a.ClassroomID, subjectID: a.SubjectID}] = struct{}{}
	}
	return caps
}

func (c Capabilities) Can(permission string) bool {
	_, ok := c.permissions[permission]
	return ok
}

// ReadOnly reports whether saves must be treated as no-ops.
func (c Capabilities) ReadOnly() bool {
	return !c.Can(PermAssessmentWrite)
}

func (c Capabilities) Scoped() bool {
	return c.scoped
}

func (c Capabilities) CanAccessClassroom(classroomID int64) bool {
	if !c.scoped {
		return true
	}
	_, ok := c.classrooms[classroomID]
	return ok
}

// CanAccessHomeroom covers attendance, extracurricular, P5, PAUD, notes and
// report-card generation for a classroom.
func (c Capabilities) CanAccessHomeroom(classroomID int64) bool {
	if !c.scoped {
		return true
	}
	_, ok := c.homerooms[classroomID]
	return ok
}

func (c Capabilities) CanAccessSubject(classroomID, subjectID int64) bool {
	if !c.scoped {
		return true
	}
	_, ok := c.subjects[subjectScope{classroomID: classroomID, subjectID: subjectID}]
	return ok
}

// ClassroomIDs returns the assigned classrooms of a scoped user, nil otherwise.
func (c Capabilities) ClassroomIDs() []int64 {
	if !c.scoped {
		return nil
	}
	ids := make([]int64, 0, len(c.classrooms))
	for id := range c.classrooms {
		ids = append(ids, id)
	}
	return ids
}

func (c Capabilities) CanWriteClassroom(classroomID int64) bool {
	return !c.ReadOnly() && c.CanAccessHomeroom(classroomID)
}

func (c Capabilities) CanWriteSubject(classroomID, subjectID int64) bool {
	return !c.ReadOnly() && c.CanAccessSubject(classroomID, subjectID)
}
