/*
resource.go - Leave type registration and lookup

PURPOSE:
  Provides a registry for the leave types offered on the application form.
  Lookup is case-insensitive so "sick", "SICK" and "Sick" are stored the
  same way. Types that were never registered are still accepted verbatim;
  the registry normalises, it does not restrict.

USAGE:
  // In timeoff/types.go
  func init() {
      generic.RegisterLeaveType("Annual")
  }

  generic.NormalizeLeaveType("annual")  // "Annual"
  generic.NormalizeLeaveType("Study")   // "Study"
*/
package generic

import (
	"sort"
	"strings"
	"sync"
)

// =============================================================================
// LEAVE TYPE REGISTRY
// =============================================================================

var (
	leaveTypeRegistry = make(map[string]string)
	registryMu        sync.RWMutex
)

// RegisterLeaveType adds a leave type to the global registry.
func RegisterLeaveType(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	leaveTypeRegistry[strings.ToLower(name)] = name
}

// LookupLeaveType finds a registered leave type.
func LookupLeaveType(name string) (string, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	t, ok := leaveTypeRegistry[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// NormalizeLeaveType returns the registered spelling of name, or the
// trimmed input when it is not registered.
func NormalizeLeaveType(name string) string {
	if t, ok := LookupLeaveType(name); ok {
		return t
	}
	return strings.TrimSpace(name)
}

// LeaveTypes returns all registered leave types, sorted.
func LeaveTypes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	types := make([]string, 0, len(leaveTypeRegistry))
	for _, t := range leaveTypeRegistry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
