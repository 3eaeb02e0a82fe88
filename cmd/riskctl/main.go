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

package main

import (
	"flag"
	"log"

	"prime-risk-engine/catalog"
	"prime-risk-engine/riskengine"
)

func main() {
	catalogPath := flag.String("catalog", "", "path to a JSON catalog mapping file (contract_to_product, contract_to_exchange, account_to_group)")
	rulesPath := flag.String("rules", "", "path to a JSON rule-list file to load at startup")
	restorePath := flag.String("restore", "", "path to a SQLite snapshot to restore at startup")
	attributionCapacity := flag.Int("attribution-capacity", 0, "override the order-attribution table's total capacity (0 keeps the engine default)")
	flag.Parse()

	cfg, err := loadCatalogConfig(*catalogPath)
	if err != nil {
		log.Fatalf("riskctl: %v", err)
	}
	cat := catalog.New(cfg.ContractToProduct, cfg.ContractToExchange, cfg.AccountToGroup)

	var opts []riskengine.Option
	if *attributionCapacity > 0 {
		opts = append(opts, riskengine.WithAttributionCapacity(*attributionCapacity))
	}
	eng := riskengine.New(cat, opts...)

	if *rulesPath != "" {
		rules, err := loadRuleList(*rulesPath)
		if err != nil {
			log.Fatalf("riskctl: %v", err)
		}
		eng.ReplaceRules(rules)
		log.Printf("riskctl: loaded %d rule(s) from %s", len(rules), *rulesPath)
	}

	c := NewConsole(eng)

	if *restorePath != "" {
		if err := restoreFromPath(c, *restorePath); err != nil {
			log.Fatalf("riskctl: %v", err)
		}
	}

	Repl(c)
}
