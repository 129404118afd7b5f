package jira

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"
)

// boardWithoutSprints recognizes the documented 400 returned for boards of a
// type that cannot have sprints. It is data absence, not a failure.
func boardWithoutSprints(status int, body []byte) bool {
	if status != http.StatusBadRequest {
		return false
	}
	for _, msg := range gjson.GetBytes(body, "errorMessages").Array() {
		if msg.String() == "The board does not support sprints" {
			return true
		}
	}
	return false
}

// issueSearchParams builds the issue search query: page size, ascending
// order on the replication key, and a JQL window derived from the
// configured date bounds plus any user-supplied clause. The window floor
// stays config-driven because the issues bookmark is an identifier, not a
// timestamp.
func issueSearchParams(cfg *sourceConfig, _ string) url.Values {
	params := url.Values{}
	params.Set("maxResults", strconv.Itoa(cfg.IssuesPageSize))
	params.Set("sort", "asc")
	params.Set("order_by", "id")
	if jql := buildJQL(cfg.StartDate, cfg.EndDate, cfg.IssuesJQL); jql != "" {
		params.Set("jql", jql)
	}
	return params
}

func issueChildContext(record map[string]interface{}) Context {
	return Context{"issue_id": record["id"]}
}

func boardChildContext(record map[string]interface{}) Context {
	return Context{"board_id": record["id"]}
}

// streamTable is the complete catalog of extractable resources. Order
// matters: parents precede their children, and the fan-out stream follows
// both collections it combines. Everything that distinguishes one stream
// from another lives in this table.
func streamTable() []*StreamDescriptor {
	return []*StreamDescriptor{
		{
			Name:           "users",
			Path:           "/users/search",
			PrimaryKeys:    []string{"accountId"},
			ReplicationKey: "accountId",
			Mode:           ReplicationIncremental,
			Flavor:         flavorCore,
		},
		{
			Name:           "fields",
			Path:           "/field",
			PrimaryKeys:    []string{"id"},
			ReplicationKey: "id",
			Mode:           ReplicationIncremental,
			Flavor:         flavorCore,
			PagingDisabled: true,
		},
		{
			Name:           "server_info",
			Path:           "/serverInfo",
			PrimaryKeys:    []string{"baseUrl"},
			ReplicationKey: "serverTime",
			Mode:           ReplicationIncremental,
			Flavor:         flavorCore,
			PagingDisabled: true,
		},
		{
			Name:           "issue_types",
			Path:           "/issuetype",
			PrimaryKeys:    []string{"id"},
			ReplicationKey: "id",
			Mode:           ReplicationIncremental,
			Flavor:         flavorCore,
			PagingDisabled: true,
		},
		{
			Name:           "workflow_statuses",
			Path:           "/status",
			PrimaryKeys:    []string{"id"},
			ReplicationKey: "self",
			Mode:           ReplicationIncremental,
			Flavor:         flavorCore,
			PagingDisabled: true,
		},
		{
			Name:           "projects",
			Path:           "/project/search",
			PrimaryKeys:    []string{"id"},
			ReplicationKey: "id",
			Mode:           ReplicationIncremental,
			RecordsPath:    "values",
			Flavor:         flavorCore,
		},
		{
			Name:           "issues",
			Path:           "/search",
			PrimaryKeys:    []string{"id"},
			ReplicationKey: "id",
			Mode:           ReplicationIncremental,
			RecordsPath:    "issues",
			Flavor:         flavorCore,
			ChildContext:   issueChildContext,
			PostProcess:    hoistField("fields", "created"),
			URLParams:      issueSearchParams,
		},
		{
			Name:           "issue_watchers",
			Path:           "/issue/{issue_id}/watchers",
			PrimaryKeys:    []string{"accountId"},
			Mode:           ReplicationFullTable,
			RecordsPath:    "watchers",
			Flavor:         flavorCore,
			Parent:         "issues",
			PagingDisabled: true,
			PostProcess:    injectContext("issueId", "issue_id"),
		},
		{
			Name:           "issue_changelog",
			Path:           "/issue/{issue_id}/changelog",
			PrimaryKeys:    []string{"id"},
			ReplicationKey: "created",
			Mode:           ReplicationIncremental,
			RecordsPath:    "values",
			Flavor:         flavorCore,
			Parent:         "issues",
			PagingDisabled: true,
			PostProcess:    injectContext("issueId", "issue_id"),
		},
		{
			Name:           "issue_comments",
			Path:           "/issue/{issue_id}/comment",
			PrimaryKeys:    []string{"id"},
			Mode:           ReplicationFullTable,
			RecordsPath:    "comments",
			Flavor:         flavorCore,
			Parent:         "issues",
			PagingDisabled: true,
			PostProcess:    injectContext("issueId", "issue_id"),
		},
		{
			Name:           "issue_worklogs",
			Path:           "/issue/{issue_id}/worklog",
			PrimaryKeys:    []string{"id"},
			Mode:           ReplicationFullTable,
			RecordsPath:    "worklogs",
			Flavor:         flavorCore,
			Parent:         "issues",
			PagingDisabled: true,
			PostProcess:    injectContext("issueId", "issue_id"),
		},
		{
			Name:           "permissions",
			Path:           "/permissions",
			Mode:           ReplicationFullTable,
			Flavor:         flavorCore,
			PagingDisabled: true,
		},
		{
			Name:           "project_roles",
			Path:           "/role",
			PrimaryKeys:    []string{"id"},
			ReplicationKey: "id",
			Mode:           ReplicationIncremental,
			Flavor:         flavorCore,
			PagingDisabled: true,
		},
		{
			Name:           "priorities",
			Path:           "/priority",
			PrimaryKeys:    []string{"id"},
			ReplicationKey: "id",
			Mode:           ReplicationIncremental,
			Flavor:         flavorCore,
			PagingDisabled: true,
		},
		{
			Name:           "permission_holders",
			Path:           "/permissionscheme",
			PrimaryKeys:    []string{"id"},
			ReplicationKey: "id",
			Mode:           ReplicationIncremental,
			RecordsPath:    "permissionSchemes",
			Flavor:         flavorCore,
			PagingDisabled: true,
		},
		{
			Name:           "boards",
			Path:           "/board",
			PrimaryKeys:    []string{"id"},
			ReplicationKey: "id",
			Mode:           ReplicationIncremental,
			RecordsPath:    "values",
			Flavor:         flavorAgile,
			ChildContext:   boardChildContext,
		},
		{
			Name:           "sprints",
			Path:           "/board/{board_id}/sprint",
			PrimaryKeys:    []string{"id"},
			ReplicationKey: "id",
			Mode:           ReplicationIncremental,
			RecordsPath:    "values",
			Flavor:         flavorAgile,
			Parent:         "boards",
			PostProcess:    injectContext("boardId", "board_id"),
			BenignError:    boardWithoutSprints,
		},
		{
			Name:           "project_role_actors",
			PrimaryKeys:    []string{"id"},
			ReplicationKey: "id",
			Mode:           ReplicationIncremental,
			Flavor:         flavorCore,
			PagingDisabled: true,
			FanOut: &fanOutSpec{
				Left:  "projects",
				Right: "project_roles",
				Path: func(left, right map[string]interface{}) string {
					return fmt.Sprintf("/project/%s/role/%s", formatScalar(left["id"]), formatScalar(right["id"]))
				},
			},
		},
		{
			Name:           "audit_records",
			Path:           "/auditing/record",
			PrimaryKeys:    []string{"id"},
			ReplicationKey: "created",
			Mode:           ReplicationIncremental,
			RecordsPath:    "records",
			Flavor:         flavorCore,
		},
		{
			Name:           "dashboards",
			Path:           "/dashboard",
			PrimaryKeys:    []string{"id"},
			ReplicationKey: "id",
			Mode:           ReplicationIncremental,
			RecordsPath:    "dashboards",
			Flavor:         flavorCore,
		},
		{
			Name:           "filter_searches",
			Path:           "/filter/search",
			PrimaryKeys:    []string{"id"},
			ReplicationKey: "id",
			Mode:           ReplicationIncremental,
			RecordsPath:    "values",
			Flavor:         flavorCore,
		},
		{
			Name:           "filter_default_share_scopes",
			Path:           "/filter/defaultShareScope",
			PrimaryKeys:    []string{"scope"},
			ReplicationKey: "scope",
			Mode:           ReplicationIncremental,
			Flavor:         flavorCore,
			PagingDisabled: true,
		},
		{
			Name:           "groups_pickers",
			Path:           "/groups/picker",
			PrimaryKeys:    []string{"groupId"},
			ReplicationKey: "groupId",
			Mode:           ReplicationIncremental,
			RecordsPath:    "groups",
			Flavor:         flavorCore,
			PagingDisabled: true,
		},
		{
			Name:           "licenses",
			Path:           "/instance/license",
			PrimaryKeys:    []string{"id"},
			ReplicationKey: "id",
			Mode:           ReplicationIncremental,
			RecordsPath:    "applications",
			Flavor:         flavorCore,
			PagingDisabled: true,
		},
		{
			Name:           "screens",
			Path:           "/screens",
			PrimaryKeys:    []string{"id"},
			ReplicationKey: "id",
			Mode:           ReplicationIncremental,
			RecordsPath:    "values",
			Flavor:         flavorCore,
		},
		{
			Name:           "screen_schemes",
			Path:           "/screenscheme",
			PrimaryKeys:    []string{"id"},
			ReplicationKey: "id",
			Mode:           ReplicationIncremental,
			RecordsPath:    "values",
			Flavor:         flavorCore,
		},
		{
			Name:           "statuses_searches",
			Path:           "/statuses/search",
			PrimaryKeys:    []string{"id"},
			ReplicationKey: "id",
			Mode:           ReplicationIncremental,
			RecordsPath:    "values",
			Flavor:         flavorCore,
		},
		{
			Name:           "workflows",
			Path:           "/workflow",
			PrimaryKeys:    []string{"name"},
			ReplicationKey: "name",
			Mode:           ReplicationIncremental,
			Flavor:         flavorCore,
			PagingDisabled: true,
		},
		{
			Name:        "resolutions",
			Path:        "/resolution/search",
			PrimaryKeys: []string{"id"},
			Mode:        ReplicationFullTable,
			RecordsPath: "values",
			Flavor:      flavorCore,
		},
		{
			Name:           "workflow_searches",
			Path:           "/workflow/search",
			PrimaryKeys:    []string{"name", "entityId"},
			ReplicationKey: "updated",
			Mode:           ReplicationIncremental,
			RecordsPath:    "values",
			Flavor:         flavorCore,
			PostProcess:    splitObjectField("id", "name", "entityId"),
		},
	}
}
