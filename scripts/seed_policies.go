// seed_policies.go — standalone script to load gate policy overrides from a
// YAML file and apply them via the Crucible admin API.
//
// Usage:
//
//	go run scripts/seed_policies.go -file policies.yaml -api http://localhost:8700 -token $CRUCIBLE_ADMIN_TOKEN
//
// The file maps gate names to partial overrides, e.g.:
//
//	desirability:
//	  min_experiments: 5
//	  thresholds:
//	    interview_count: 15
//	viability:
//	  requires_approval: true
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"gopkg.in/yaml.v3"
)

type policyUpdate struct {
	MinExperiments    *int               `yaml:"min_experiments" json:"min_experiments,omitempty"`
	RequiredFitTypes  []string           `yaml:"required_fit_types" json:"required_fit_types,omitempty"`
	MinWeakEvidence   *int               `yaml:"min_weak_evidence" json:"min_weak_evidence,omitempty"`
	MinMediumEvidence *int               `yaml:"min_medium_evidence" json:"min_medium_evidence,omitempty"`
	MinStrongEvidence *int               `yaml:"min_strong_evidence" json:"min_strong_evidence,omitempty"`
	Thresholds        map[string]float64 `yaml:"thresholds" json:"thresholds,omitempty"`
	OverrideRoles     []string           `yaml:"override_roles" json:"override_roles,omitempty"`
	RequiresApproval  *bool              `yaml:"requires_approval" json:"requires_approval,omitempty"`
}

func main() {
	filePath := flag.String("file", "policies.yaml", "path to the policies YAML file")
	apiURL := flag.String("api", "http://localhost:8700", "Crucible API base URL")
	token := flag.String("token", os.Getenv("CRUCIBLE_ADMIN_TOKEN"), "admin bearer token")
	actor := flag.String("actor", "seed-script", "actor id sent with each request")
	flag.Parse()

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatalf("read %s: %v", *filePath, err)
	}

	var policies map[string]policyUpdate
	if err := yaml.Unmarshal(data, &policies); err != nil {
		log.Fatalf("parse %s: %v", *filePath, err)
	}
	if len(policies) == 0 {
		log.Fatal("no policies found in file")
	}

	client := &http.Client{}
	applied := 0
	for gate, update := range policies {
		body, err := json.Marshal(update)
		if err != nil {
			log.Fatalf("marshal %s: %v", gate, err)
		}

		url := fmt.Sprintf("%s/api/v1/gates/%s/policy", *apiURL, gate)
		req, err := http.NewRequest(http.MethodPut, url, bytes.NewBuffer(body))
		if err != nil {
			log.Fatalf("build request for %s: %v", gate, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Actor-ID", *actor)
		if *token != "" {
			req.Header.Set("Authorization", "Bearer "+*token)
		}

		resp, err := client.Do(req)
		if err != nil {
			log.Fatalf("PUT %s: %v", url, err)
		}
		if resp.StatusCode != http.StatusOK {
			var msg bytes.Buffer
			_, _ = msg.ReadFrom(resp.Body)
			resp.Body.Close()
			log.Fatalf("PUT %s: %d %s", url, resp.StatusCode, msg.String())
		}
		resp.Body.Close()

		fmt.Printf("applied override for %s gate\n", gate)
		applied++
	}

	fmt.Printf("done: %d gate(s) updated\n", applied)
}
