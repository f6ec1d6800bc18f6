package services

import "errors"

var ErrControllerClosed = errors.New("controller closed")

// errorMessage turns err into the single string a controller exposes.
func errorMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
