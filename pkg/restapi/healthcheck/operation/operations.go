/*
Copyright Swiss SSI Group. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package operation

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/trustbloc/edge-core/pkg/log"

	"github.com/swiss-ssi-group/verifiedid-mdl-adapter/pkg/internal/common/support"
	"github.com/swiss-ssi-group/verifiedid-mdl-adapter/pkg/restapi"
)

var logger = log.New("mdl-adapter/healthcheck")

const healthCheckEndpoint = "/healthcheck"

// Operation defines the health check handler.
type Operation struct{}

// New returns a health check operation instance.
func New() *Operation {
	return &Operation{}
}

// GetRESTHandlers get all controller API handlers available for this service.
func (o *Operation) GetRESTHandlers() []restapi.Handler {
	return []restapi.Handler{
		support.NewHTTPHandler(healthCheckEndpoint, http.MethodGet, o.healthCheckHandler),
	}
}

type healthCheckResp struct {
	Status      string    `json:"status"`
	CurrentTime time.Time `json:"currentTime"`
}

func (o *Operation) healthCheckHandler(rw http.ResponseWriter, _ *http.Request) {
	rw.WriteHeader(http.StatusOK)

	err := json.NewEncoder(rw).Encode(&healthCheckResp{
		Status:      "success",
		CurrentTime: time.Now(),
	})
	if err != nil {
		logger.Errorf("healthcheck response failure, %s", err)
	}
}
