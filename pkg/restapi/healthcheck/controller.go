/*
Copyright Swiss SSI Group. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package healthcheck

import (
	"github.com/swiss-ssi-group/verifiedid-mdl-adapter/pkg/restapi"
	"github.com/swiss-ssi-group/verifiedid-mdl-adapter/pkg/restapi/healthcheck/operation"
)

// New returns new controller instance.
func New() *Controller {
	var allHandlers []restapi.Handler

	healthCheckService := operation.New()

	allHandlers = append(allHandlers, healthCheckService.GetRESTHandlers()...)

	return &Controller{handlers: allHandlers}
}

// Controller contains handlers for controller.
type Controller struct {
	handlers []restapi.Handler
}

// GetOperations returns all controller endpoints.
func (c *Controller) GetOperations() []restapi.Handler {
	return c.handlers
}
