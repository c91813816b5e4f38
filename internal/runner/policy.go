package runner

import (
	"errors"
	"fmt"
	"strings"
)

// Policy decides whether a command line may run at all.
type Policy interface {
	Check(command string) error
}

// AllowAll passes every command line through to the shell.
type AllowAll struct{}

func (AllowAll) Check(string) error { return nil }

// AllowList admits a command line only if every segment separated by
// ";", "&", "|" or a newline starts with a listed program, after any
// leading VAR=value assignments. Command and process substitution are
// always rejected, as are assignments to variables that change which code
// the program loads (see isProtectedVar).
//
// The check is coarse: it does not parse quoting, so a separator inside
// quotes splits the line too. That errs on the side of denial.
type AllowList struct {
	programs map[string]struct{}
}

// NewAllowList returns a policy admitting the given program names. Names
// are matched exactly, so "ls" does not admit "/bin/ls".
func NewAllowList(programs ...string) *AllowList {
	a := &AllowList{programs: make(map[string]struct{}, len(programs))}
	for _, p := range programs {
		if p = strings.TrimSpace(p); p != "" {
			a.programs[p] = struct{}{}
		}
	}
	return a
}

var errSubstitution = errors.New("command or process substitution is not allowed")

// substitutions start a nested command the segment scan cannot see.
var substitutions = []string{"`", "$(", "<(", ">("}

func (a *AllowList) Check(command string) error {
	for _, s := range substitutions {
		if strings.Contains(command, s) {
			return errSubstitution
		}
	}
	segments := strings.FieldsFunc(command, func(r rune) bool {
		return r == ';' || r == '&' || r == '|' || r == '\n'
	})
	for _, seg := range segments {
		for _, f := range strings.Fields(seg) {
			if !isAssignment(f) {
				break
			}
			if name := f[:strings.IndexByte(f, '=')]; isProtectedVar(name) {
				return fmt.Errorf("assignment to %s is not allowed", name)
			}
		}
		prog := programOf(seg)
		if prog == "" {
			continue
		}
		if _, ok := a.programs[prog]; !ok {
			return fmt.Errorf("program %q is not allowed", prog)
		}
	}
	return nil
}

// programOf returns the first word of seg that is not a VAR=value assignment.
func programOf(seg string) string {
	for _, f := range strings.Fields(seg) {
		if isAssignment(f) {
			continue
		}
		return f
	}
	return ""
}

func isAssignment(word string) bool {
	eq := strings.IndexByte(word, '=')
	if eq <= 0 {
		return false
	}
	for i, c := range word[:eq] {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// isProtectedVar reports whether setting name in front of a program can make
// it run code other than its own: loader, search path and shell startup.
func isProtectedVar(name string) bool {
	switch name {
	case "PATH", "IFS", "ENV", "BASH_ENV", "SHELLOPTS", "BASHOPTS", "PS4", "CDPATH":
		return true
	}
	return strings.HasPrefix(name, "LD_") || strings.HasPrefix(name, "DYLD_")
}
