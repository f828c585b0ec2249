package stage

import "fmt"

// Slot describes one output of a producer: the format it emits and the role
// it expects its consumer to have.
type Slot struct {
	Role   Role
	Format Format
}

// IsLinkValid reports whether a consumer with the given role and input
// format may be adopted into a slot.
func IsLinkValid(slot Slot, consumerRole Role, consumerInput Format) bool {
	return consumerInput != FormatNone &&
		consumerInput == slot.Format &&
		consumerRole == slot.Role
}

// CheckLink is IsLinkValid with a descriptive error. The format is checked
// before the role.
func CheckLink(slot Slot, consumer Stage) error {
	input := consumer.Shape().Input
	if input == FormatNone || input != slot.Format {
		return fmt.Errorf("%w: %s accepts %s, slot emits %s",
			ErrIncompatibleFormat, consumer.Name(), input, slot.Format)
	}
	if role := consumer.Role(); role != slot.Role {
		return fmt.Errorf("%w: %s is %s, slot expects %s",
			ErrIncompatibleRole, consumer.Name(), role, slot.Role)
	}
	return nil
}
