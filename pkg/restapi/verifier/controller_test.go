/*
Copyright Swiss SSI Group. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/trustbloc/edge-core/pkg/storage/memstore"
	mockstorage "github.com/trustbloc/edge-core/pkg/storage/mockstore"

	"github.com/swiss-ssi-group/verifiedid-mdl-adapter/pkg/restapi/verifier/operation"
)

func TestNew(t *testing.T) {
	t.Run("test new - success", func(t *testing.T) {
		controller, err := New(&operation.Config{StoreProvider: memstore.NewProvider()})
		require.NoError(t, err)
		require.NotNil(t, controller)

		ops := controller.GetOperations()
		require.Equal(t, 3, len(ops))
	})

	t.Run("test new - fail", func(t *testing.T) {
		controller, err := New(&operation.Config{
			StoreProvider: &mockstorage.Provider{ErrCreateStore: errors.New("test")},
		})
		require.Nil(t, controller)
		require.Error(t, err)
	})
}
