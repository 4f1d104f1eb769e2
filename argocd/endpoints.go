package argocd

import (
	"net/http"

	"github.com/boat-builder/opspod/restcall"
)

const (
	statusApplications   = "Looking up ArgoCD applications..."
	statusInfrastructure = "Looking up ArgoCD infrastructure..."
	statusAccess         = "Looking up ArgoCD access settings..."
)

func query(names ...string) []restcall.Param {
	params := make([]restcall.Param, 0, len(names))
	for _, n := range names {
		params = append(params, restcall.Param{Name: n})
	}
	return params
}

func upsert(extra ...restcall.Param) []restcall.Param {
	return append([]restcall.Param{{Name: "upsert", Type: "boolean", Description: "Replace the resource if it already exists"}}, extra...)
}

var appName = restcall.Param{Name: "name", In: restcall.InPath, Required: true, Description: "Application name"}

// ApplicationEndpoints manage applications and application sets.
var ApplicationEndpoints = []restcall.Endpoint{
	{
		Name:        "ApplicationService_List",
		Description: "List returns list of applications",
		Method:      http.MethodGet,
		Path:        "/api/v1/applications",
		Params: []restcall.Param{
			{Name: "name", Description: "Only list the application with this name"},
			{Name: "refresh", Description: "Forces application reconciliation if set to 'hard' or 'normal'"},
			{Name: "projects", Type: "array", Description: "Only list applications of these projects"},
			{Name: "resourceVersion"},
			{Name: "selector", Description: "Label selector, e.g. team=payments"},
			{Name: "repo", Description: "Only list applications sourced from this repository URL"},
			{Name: "appNamespace"},
			{Name: "project", Type: "array"},
		},
	},
	{
		Name:         "ApplicationService_Create",
		Description:  "Create creates an application",
		Method:       http.MethodPost,
		Path:         "/api/v1/applications",
		Params:       upsert(restcall.Param{Name: "validate", Type: "boolean"}),
		Body:         "The v1alpha1.Application to create",
		BodyRequired: true,
	},
	{
		Name:        "ApplicationService_Get",
		Description: "Get returns an application by name",
		Method:      http.MethodGet,
		Path:        "/api/v1/applications/{name}",
		Params: []restcall.Param{
			appName,
			{Name: "refresh"},
			{Name: "project", Type: "array"},
			{Name: "resourceVersion"},
			{Name: "selector"},
			{Name: "repo"},
			{Name: "appNamespace"},
		},
	},
	{
		Name:        "ApplicationService_Delete",
		Description: "Delete deletes an application",
		Method:      http.MethodDelete,
		Path:        "/api/v1/applications/{name}",
		Params: []restcall.Param{
			appName,
			{Name: "cascade", Type: "boolean"},
			{Name: "propagationPolicy", Enum: []any{"foreground", "background"}},
			{Name: "appNamespace"},
			{Name: "project"},
		},
	},
	{
		Name:        "ApplicationService_Sync",
		Description: "Sync syncs an application to its target state",
		Method:      http.MethodPost,
		Path:        "/api/v1/applications/{name}/sync",
		Params:      []restcall.Param{appName},
		Body:        "Sync options such as revision, prune, dryRun and resources",
	},
	{
		Name:         "ApplicationService_Rollback",
		Description:  "Rollback syncs an application to its previous version",
		Method:       http.MethodPost,
		Path:         "/api/v1/applications/{name}/rollback",
		Params:       []restcall.Param{appName},
		Body:         "Rollback request with the history id to roll back to",
		BodyRequired: true,
	},
	{
		Name:        "ApplicationService_ResourceTree",
		Description: "ResourceTree returns resource tree",
		Method:      http.MethodGet,
		Path:        "/api/v1/applications/{applicationName}/resource-tree",
		Params: []restcall.Param{
			{Name: "applicationName", In: restcall.InPath, Required: true},
			{Name: "namespace"},
			{Name: "name"},
			{Name: "version"},
			{Name: "group"},
			{Name: "kind"},
			{Name: "appNamespace"},
			{Name: "project"},
		},
	},
	{
		Name:         "ApplicationService_GetManifestsWithFiles",
		Description:  "GetManifestsWithFiles returns application manifests using provided files to generate them",
		Method:       http.MethodPost,
		Path:         "/api/v1/applications/manifestsWithFiles",
		Body:         "Manifest query with the files to render",
		BodyRequired: true,
	},
	{
		Name:        "ApplicationSetService_List",
		Description: "List returns list of applicationset",
		Method:      http.MethodGet,
		Path:        "/api/v1/applicationsets",
		Params: []restcall.Param{
			{Name: "projects", Type: "array"},
			{Name: "selector"},
			{Name: "appsetNamespace"},
		},
	},
	{
		Name:         "ApplicationSetService_Create",
		Description:  "Create creates an applicationset",
		Method:       http.MethodPost,
		Path:         "/api/v1/applicationsets",
		Params:       upsert(restcall.Param{Name: "dryRun", Type: "boolean"}),
		Body:         "The v1alpha1.ApplicationSet to create",
		BodyRequired: true,
	},
	{
		Name:         "ApplicationSetService_Generate",
		Description:  "Generate generates the applications an applicationset would produce",
		Method:       http.MethodPost,
		Path:         "/api/v1/applicationsets/generate",
		Body:         "Generate request holding the applicationset",
		BodyRequired: true,
	},
	{
		Name:        "ProjectService_List",
		Description: "List returns list of projects",
		Method:      http.MethodGet,
		Path:        "/api/v1/projects",
		Params:      query("name"),
	},
	{
		Name:        "ProjectService_Get",
		Description: "Get returns a project by name",
		Method:      http.MethodGet,
		Path:        "/api/v1/projects/{name}",
		Params:      []restcall.Param{{Name: "name", In: restcall.InPath, Required: true}},
	},
	{
		Name:         "ProjectService_Create",
		Description:  "Create a new project",
		Method:       http.MethodPost,
		Path:         "/api/v1/projects",
		Body:         "Project create request holding the v1alpha1.AppProject",
		BodyRequired: true,
	},
}

// InfrastructureEndpoints manage clusters, repositories, credentials and keys.
var InfrastructureEndpoints = []restcall.Endpoint{
	{
		Name:        "ClusterService_List",
		Description: "List returns list of clusters",
		Method:      http.MethodGet,
		Path:        "/api/v1/clusters",
		Params: []restcall.Param{
			{Name: "server"},
			{Name: "name"},
			{Name: "id_type", Key: "id.type", Description: "Type of the cluster identifier: server (default) or name"},
			{Name: "id_value", Key: "id.value", Description: "Value of the cluster identifier"},
		},
	},
	{
		Name:         "ClusterService_Create",
		Description:  "Create creates a cluster",
		Method:       http.MethodPost,
		Path:         "/api/v1/clusters",
		Params:       upsert(),
		Body:         "The v1alpha1.Cluster to create",
		BodyRequired: true,
	},
	{
		Name:        "RepositoryService_ListRepositories",
		Description: "ListRepositories gets a list of all configured repositories",
		Method:      http.MethodGet,
		Path:        "/api/v1/repositories",
		Params: []restcall.Param{
			{Name: "repo"},
			{Name: "forceRefresh", Type: "boolean"},
			{Name: "appProject"},
		},
	},
	{
		Name:         "RepositoryService_CreateRepository",
		Description:  "CreateRepository creates a new repository configuration",
		Method:       http.MethodPost,
		Path:         "/api/v1/repositories",
		Params:       upsert(restcall.Param{Name: "credsOnly", Type: "boolean"}),
		Body:         "The v1alpha1.Repository to create",
		BodyRequired: true,
	},
	{
		Name:        "RepositoryService_ListWriteRepositories",
		Description: "ListWriteRepositories gets a list of all configured write repositories",
		Method:      http.MethodGet,
		Path:        "/api/v1/write-repositories",
		Params: []restcall.Param{
			{Name: "repo"},
			{Name: "forceRefresh", Type: "boolean"},
			{Name: "appProject"},
		},
	},
	{
		Name:         "RepositoryService_CreateWriteRepository",
		Description:  "CreateWriteRepository creates a new write repository configuration",
		Method:       http.MethodPost,
		Path:         "/api/v1/write-repositories",
		Params:       upsert(restcall.Param{Name: "credsOnly", Type: "boolean"}),
		Body:         "The v1alpha1.Repository to create",
		BodyRequired: true,
	},
	{
		Name:        "RepoCredsService_ListRepositoryCredentials",
		Description: "ListRepositoryCredentials gets a list of all configured repository credential sets",
		Method:      http.MethodGet,
		Path:        "/api/v1/repocreds",
		Params:      query("url"),
	},
	{
		Name:         "RepoCredsService_CreateRepositoryCredentials",
		Description:  "CreateRepositoryCredentials creates a new repository credential set",
		Method:       http.MethodPost,
		Path:         "/api/v1/repocreds",
		Params:       upsert(),
		Body:         "The v1alpha1.RepoCreds to create",
		BodyRequired: true,
	},
	{
		Name:        "RepoCredsService_ListWriteRepositoryCredentials",
		Description: "ListWriteRepositoryCredentials gets a list of all configured repository credential sets that have write access",
		Method:      http.MethodGet,
		Path:        "/api/v1/write-repocreds",
		Params:      query("url"),
	},
	{
		Name:         "RepoCredsService_CreateWriteRepositoryCredentials",
		Description:  "CreateWriteRepositoryCredentials creates a new repository credential set with write access",
		Method:       http.MethodPost,
		Path:         "/api/v1/write-repocreds",
		Params:       upsert(),
		Body:         "The v1alpha1.RepoCreds to create",
		BodyRequired: true,
	},
	{
		Name:        "CertificateService_ListCertificates",
		Description: "List all available repository certificates",
		Method:      http.MethodGet,
		Path:        "/api/v1/certificates",
		Params:      query("hostNamePattern", "certType", "certSubType"),
	},
	{
		Name:         "CertificateService_CreateCertificate",
		Description:  "Creates repository certificates on the server",
		Method:       http.MethodPost,
		Path:         "/api/v1/certificates",
		Params:       upsert(),
		Body:         "The v1alpha1.RepositoryCertificateList to create",
		BodyRequired: true,
	},
	{
		Name:        "CertificateService_DeleteCertificate",
		Description: "Delete the certificates that match the RepositoryCertificateQuery",
		Method:      http.MethodDelete,
		Path:        "/api/v1/certificates",
		Params:      query("hostNamePattern", "certType", "certSubType"),
	},
	{
		Name:        "GPGKeyService_List",
		Description: "List all available GPG public keys",
		Method:      http.MethodGet,
		Path:        "/api/v1/gpgkeys",
		Params:      query("keyID"),
	},
	{
		Name:         "GPGKeyService_Create",
		Description:  "Create one or more GPG public keys in the server's configuration",
		Method:       http.MethodPost,
		Path:         "/api/v1/gpgkeys",
		Params:       upsert(),
		Body:         "The v1alpha1.GnuPGPublicKey to create",
		BodyRequired: true,
	},
	{
		Name:        "GPGKeyService_Delete",
		Description: "Delete specified GPG public key from the server's configuration",
		Method:      http.MethodDelete,
		Path:        "/api/v1/gpgkeys",
		Params:      query("keyID"),
	},
	{
		Name:        "NotificationService_ListServices",
		Description: "List returns list of notification services",
		Method:      http.MethodGet,
		Path:        "/api/v1/notifications/services",
	},
	{
		Name:        "NotificationService_ListTemplates",
		Description: "List returns list of notification templates",
		Method:      http.MethodGet,
		Path:        "/api/v1/notifications/templates",
	},
	{
		Name:        "NotificationService_ListTriggers",
		Description: "List returns list of notification triggers",
		Method:      http.MethodGet,
		Path:        "/api/v1/notifications/triggers",
	},
	{
		Name:        "SettingsService_Get",
		Description: "Get returns Argo CD settings",
		Method:      http.MethodGet,
		Path:        "/api/v1/settings",
	},
	{
		Name:        "SettingsService_GetPlugins",
		Description: "Get returns Argo CD plugins",
		Method:      http.MethodGet,
		Path:        "/api/v1/settings/plugins",
	},
	{
		Name:        "VersionService_Version",
		Description: "Version returns version information of the API server",
		Method:      http.MethodGet,
		Path:        "/api/version",
	},
}

// AccessEndpoints manage accounts and sessions.
var AccessEndpoints = []restcall.Endpoint{
	{
		Name:        "AccountService_ListAccounts",
		Description: "ListAccounts returns the list of accounts",
		Method:      http.MethodGet,
		Path:        "/api/v1/account",
	},
	{
		Name:         "AccountService_UpdatePassword",
		Description:  "UpdatePassword updates an account's password to a new value",
		Method:       http.MethodPut,
		Path:         "/api/v1/account/password",
		Body:         "Password update request with name, currentPassword and newPassword",
		BodyRequired: true,
	},
	{
		Name:         "SessionService_Create",
		Description:  "Create a new JWT for authentication and set a cookie if using HTTP",
		Method:       http.MethodPost,
		Path:         "/api/v1/session",
		Body:         "Session create request with username and password, or a token",
		BodyRequired: true,
	},
	{
		Name:        "SessionService_Delete",
		Description: "Delete an existing JWT cookie if using HTTP",
		Method:      http.MethodDelete,
		Path:        "/api/v1/session",
	},
	{
		Name:        "SessionService_GetUserInfo",
		Description: "Get the current user's info",
		Method:      http.MethodGet,
		Path:        "/api/v1/session/userinfo",
	},
}
