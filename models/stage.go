package models

import "fmt"

// Stage is one step of the fixed production pipeline an order walks through
type Stage string

const (
	StagePending   Stage = "pending"
	StageTailoring Stage = "tailoring"
	StageBeading   Stage = "beading"
	StageFitting   Stage = "fitting"
	StageQC        Stage = "qc"
	StageCompleted Stage = "completed"
)

// WorkflowStages lists every stage in pipeline order
var WorkflowStages = []Stage{
	StagePending,
	StageTailoring,
	StageBeading,
	StageFitting,
	StageQC,
	StageCompleted,
}

// Validate returns an error for any value outside the pipeline
func (s Stage) Validate() error {
	_, err := s.Index()
	return err
}

// Index returns the position of the stage in WorkflowStages
func (s Stage) Index() (int, error) {
	switch s {
	case StagePending:
		return 0, nil
	case StageTailoring:
		return 1, nil
	case StageBeading:
		return 2, nil
	case StageFitting:
		return 3, nil
	case StageQC:
		return 4, nil
	case StageCompleted:
		return 5, nil
	default:
		return -1, fmt.Errorf("unknown workflow stage %q", string(s))
	}
}

// Progress returns the fixed percentage shown for the stage.
// Progress is never set independently of the stage.
func (s Stage) Progress() (int, error) {
	switch s {
	case StagePending:
		return 0, nil
	case StageTailoring:
		return 25, nil
	case StageBeading:
		return 50, nil
	case StageFitting:
		return 75, nil
	case StageQC:
		return 90, nil
	case StageCompleted:
		return 100, nil
	default:
		return 0, fmt.Errorf("unknown workflow stage %q", string(s))
	}
}

// RequiredRole returns the staff role that may be assigned while the order sits in this stage.
// A pending order is started by a tailor.
func (s Stage) RequiredRole() (Role, error) {
	switch s {
	case StagePending, StageTailoring:
		return RoleTailor, nil
	case StageBeading:
		return RoleBeader, nil
	case StageFitting:
		return RoleFitter, nil
	case StageQC:
		return RoleQC, nil
	case StageCompleted:
		return "", fmt.Errorf("stage %q has no assignable role", string(s))
	default:
		return "", fmt.Errorf("unknown workflow stage %q", string(s))
	}
}

// Next returns the stage that follows s
func (s Stage) Next() (Stage, error) {
	switch s {
	case StagePending:
		return StageTailoring, nil
	case StageTailoring:
		return StageBeading, nil
	case StageBeading:
		return StageFitting, nil
	case StageFitting:
		return StageQC, nil
	case StageQC:
		return StageCompleted, nil
	case StageCompleted:
		return "", fmt.Errorf("stage %q is terminal", string(s))
	default:
		return "", fmt.Errorf("unknown workflow stage %q", string(s))
	}
}

// IsWorking reports whether staff do hands-on work in this stage
func (s Stage) IsWorking() bool {
	switch s {
	case StageTailoring, StageBeading, StageFitting, StageQC:
		return true
	default:
		return false
	}
}

// Role is the specialism of a staff member
type Role string

const (
	RoleTailor Role = "tailor"
	RoleBeader Role = "beader"
	RoleFitter Role = "fitter"
	RoleQC     Role = "qc"
)

// StaffRoles lists every assignable staff role
var StaffRoles = []Role{RoleTailor, RoleBeader, RoleFitter, RoleQC}

// Validate returns an error for an unknown role
func (r Role) Validate() error {
	switch r {
	case RoleTailor, RoleBeader, RoleFitter, RoleQC:
		return nil
	default:
		return fmt.Errorf("unknown staff role %q", string(r))
	}
}
