/*
Copyright Swiss SSI Group. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package restapi

import "net/http"

// Handler http handler for each controller API endpoint.
type Handler interface {
	Path() string
	Method() string
	Handle() http.HandlerFunc
}
