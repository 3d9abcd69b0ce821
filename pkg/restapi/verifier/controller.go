/*
Copyright Swiss SSI Group. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"fmt"

	"github.com/swiss-ssi-group/verifiedid-mdl-adapter/pkg/restapi"
	"github.com/swiss-ssi-group/verifiedid-mdl-adapter/pkg/restapi/verifier/operation"
)

// New returns new controller instance.
func New(config *operation.Config) (*Controller, error) {
	verifierService, err := operation.New(config)
	if err != nil {
		return nil, fmt.Errorf("failed to init operations: %w", err)
	}

	return &Controller{handlers: verifierService.GetRESTHandlers()}, nil
}

// Controller contains handlers for controller.
type Controller struct {
	handlers []restapi.Handler
}

// GetOperations returns all controller endpoints.
func (c *Controller) GetOperations() []restapi.Handler {
	return c.handlers
}
