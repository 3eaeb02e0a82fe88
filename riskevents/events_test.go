/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package riskevents

import "testing"

func TestDimKey_Project_OrderIndependentOfCallerArgumentOrder(t *testing.T) {
	k := NewDimKey(
		DimComponent{Name: DimAccount, Value: "acct-1"},
		DimComponent{Name: DimProduct, Value: "CL"},
	)

	forward, ok := k.Project(DimAccount, DimProduct)
	if !ok {
		t.Fatal("expected forward projection to succeed")
	}
	reversed, ok := k.Project(DimProduct, DimAccount)
	if !ok {
		t.Fatal("expected reversed projection to succeed")
	}

	if forward != reversed {
		t.Fatalf("two rules naming the same dimension set in different order must project to the same key: %+v != %+v", forward, reversed)
	}
	if forward.String() != "account_id=acct-1,product_id=CL" {
		t.Errorf("expected projection to preserve k's own canonical order, got %q", forward.String())
	}
}

func TestDimKey_Project_MissingNameFails(t *testing.T) {
	k := NewDimKey(DimComponent{Name: DimAccount, Value: "acct-1"})

	if _, ok := k.Project(DimAccount, DimProduct); ok {
		t.Error("expected projection to fail when a requested name is absent from k")
	}
}

func TestDimKey_Project_SubsetKeepsOnlyRequestedNames(t *testing.T) {
	k := NewDimKey(
		DimComponent{Name: DimAccount, Value: "acct-1"},
		DimComponent{Name: DimContract, Value: "CL-DEC25"},
		DimComponent{Name: DimProduct, Value: "CL"},
	)

	got, ok := k.Project(DimProduct)
	if !ok {
		t.Fatal("expected projection to succeed")
	}
	if got.String() != "product_id=CL" {
		t.Errorf("expected a single-component projection, got %q", got.String())
	}
}
