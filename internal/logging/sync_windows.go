//go:build windows

package logging

func isUnsyncable(error) bool {
	return true
}
