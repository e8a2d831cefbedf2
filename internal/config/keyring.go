/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const keyringService = "GoStoryboard"

// TokenStore abstracts the OS keychain so tests can stub it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

var tokenStore TokenStore = osKeyring{}

// osKeyring implements TokenStore with github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// secretKey names the keychain entry holding the catalog password.
func secretKey(c CatalogConfig) string {
	if c.User != "" {
		return "catalog:" + c.User
	}
	return "catalog"
}

// SetCatalogPassword stores the catalog password in the keychain only.
func SetCatalogPassword(c CatalogConfig, password string) error {
	if password == "" {
		return errors.New("empty password")
	}
	return tokenStore.Set(keyringService, secretKey(c), password)
}

// ForgetCatalogPassword removes the stored catalog password.
func ForgetCatalogPassword(c CatalogConfig) error {
	err := tokenStore.Delete(keyringService, secretKey(c))
	if err == keyring.ErrNotFound {
		return nil
	}
	return err
}
