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

package counterstore

// hashCompositeKey combines a composite key's dimension components and
// day id into a shard index using FNV-1a, continuing the same mix
// DimKey.Hash uses so the two stay bit-compatible. Nothing may depend
// on ordering across shards, so distribution quality is all that
// matters here.
func hashCompositeKey(ck compositeKey) uint64 {
	const prime64 = 1099511628211

	h := ck.dim.Hash()
	day := uint64(ck.day)
	for i := 0; i < 8; i++ {
		h ^= uint64(byte(day >> (8 * i)))
		h *= prime64
	}
	return h
}
