//go:build !rteventsdebug

package midi

const assertionsEnabled = false
