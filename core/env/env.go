// Package env is the shell variable store.
//
// Names are case-insensitive. The control variables Echo, Exit, Test and
// Status are ordinary entries whose values are also cached as flags.
package env

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

const (
	NameEcho   = "echo"
	NameExit   = "exit"
	NameTest   = "test"
	NameStatus = "status"
)

// Entry is one variable.
type Entry struct {
	Name     string
	Value    string
	Exported bool
}

type entry struct {
	// spelling is the name as it was last set, used for child processes.
	spelling string
	value    string
	exported bool
}

// Environment implements the variable store.
type Environment struct {
	rw    sync.RWMutex
	table map[string]entry

	echo   bool
	exit   bool
	test   bool
	status int
}

// New creates an empty environment.
func New() *Environment {
	return &Environment{table: make(map[string]entry)}
}

// truth is false for "" and "0", true otherwise.
func truth(s string) bool {
	return s != "" && s != "0"
}

func canonical(name string) string {
	return strings.ToLower(name)
}

// mirror updates the cached flags after key changed. Callers hold the write
// lock.
func (e *Environment) mirror(key, value string, present bool) {
	switch key {
	case NameEcho:
		e.echo = present && truth(value)
	case NameExit:
		e.exit = present && truth(value)
	case NameTest:
		e.test = present && truth(value)
	case NameStatus:
		e.status = 0
		if present {
			e.status, _ = strconv.Atoi(strings.TrimSpace(value))
		}
	}
}

// Get retrieves a variable. The boolean is false if it is not set.
func (e *Environment) Get(name string) (string, bool) {
	e.rw.RLock()
	defer e.rw.RUnlock()

	ent, ok := e.table[canonical(name)]
	return ent.value, ok
}

// Lookup returns the entry for a variable. Name is reported in its
// canonical lowercase form.
func (e *Environment) Lookup(name string) (Entry, bool) {
	e.rw.RLock()
	defer e.rw.RUnlock()

	key := canonical(name)
	ent, ok := e.table[key]
	if !ok {
		return Entry{}, false
	}
	return Entry{Name: key, Value: ent.value, Exported: ent.exported}, true
}

// Getenv retrieves a variable, returning "" if it is not set.
func (e *Environment) Getenv(name string) string {
	val, _ := e.Get(name)
	return val
}

// Set assigns a variable. A variable that was exported stays exported.
func (e *Environment) Set(name, value string, exported bool) {
	e.rw.Lock()
	defer e.rw.Unlock()

	key := canonical(name)
	if old, ok := e.table[key]; ok && old.exported {
		exported = true
	}
	e.table[key] = entry{spelling: name, value: value, exported: exported}
	e.mirror(key, value, true)
}

// SetExported changes the exported bit of an existing variable. It returns
// false if the variable is not set.
func (e *Environment) SetExported(name string, exported bool) bool {
	e.rw.Lock()
	defer e.rw.Unlock()

	key := canonical(name)
	ent, ok := e.table[key]
	if !ok {
		return false
	}
	ent.exported = exported
	e.table[key] = ent
	return true
}

// Unset removes a variable.
func (e *Environment) Unset(name string) {
	e.rw.Lock()
	defer e.rw.Unlock()

	key := canonical(name)
	delete(e.table, key)
	e.mirror(key, "", false)
}

// UnsetAll removes every variable and clears the cached flags.
func (e *Environment) UnsetAll() {
	e.rw.Lock()
	defer e.rw.Unlock()

	e.table = make(map[string]entry)
	e.echo, e.exit, e.test = false, false, false
	e.status = 0
}

// SetStatus records the status of the last command. The Status variable is
// only written when the value changes or the variable is missing.
func (e *Environment) SetStatus(i int) int {
	e.rw.Lock()
	defer e.rw.Unlock()

	old, ok := e.table[NameStatus]
	if ok && e.status == i {
		return i
	}
	e.status = i
	e.table[NameStatus] = entry{spelling: NameStatus, value: strconv.Itoa(i), exported: old.exported}
	return i
}

// Status returns the status of the last command.
func (e *Environment) Status() int {
	e.rw.RLock()
	defer e.rw.RUnlock()
	return e.status
}

// Echo reports whether commands are echoed before they run.
func (e *Environment) Echo() bool {
	e.rw.RLock()
	defer e.rw.RUnlock()
	return e.echo
}

// Exit reports whether a failing command aborts the script.
func (e *Environment) Exit() bool {
	e.rw.RLock()
	defer e.rw.RUnlock()
	return e.exit
}

// Test reports whether external commands are suppressed.
func (e *Environment) Test() bool {
	e.rw.RLock()
	defer e.rw.RUnlock()
	return e.test
}

// Entries returns all variables sorted by name.
func (e *Environment) Entries() []Entry {
	e.rw.RLock()
	defer e.rw.RUnlock()

	out := make([]Entry, 0, len(e.table))
	for k, v := range e.table {
		out = append(out, Entry{Name: k, Value: v.value, Exported: v.exported})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// Environ returns the exported variables in "key=value" form, suitable for
// child processes. Names keep the spelling they were set with.
func (e *Environment) Environ() []string {
	e.rw.RLock()
	defer e.rw.RUnlock()

	var env []string
	for _, ent := range e.table {
		if ent.exported {
			env = append(env, fmt.Sprintf("%s=%s", ent.spelling, ent.value))
		}
	}
	sort.Strings(env)
	return env
}
