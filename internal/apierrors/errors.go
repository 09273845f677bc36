// Package apierrors contains all common errors used by the consult client.
package apierrors

import "fmt"

var ErrSessionTerminated = fmt.Errorf("the session was terminated, please log in again")
var ErrMissingRefreshToken = fmt.Errorf("no refresh token is available")
var ErrRefreshFailed = fmt.Errorf("refreshing the access token failed")
var ErrStreamTimeout = fmt.Errorf("the consultation timed out, please try again")
var ErrUpstreamUnreachable = fmt.Errorf("the consultation service cannot be reached, please try again later")
var ErrStreamNoBody = fmt.Errorf("the streaming response has no body")
var ErrMissingDBResource = fmt.Errorf("the requested resource cannot be found in the DB")
var ErrInvalidArgument = fmt.Errorf("invalid argument")
