// Package apiconnect wires the api messages to Connect handlers and clients.
package apiconnect

import (
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/pkg/api"
)

const (
	ExpenseServiceName = "splitledger.v1.ExpenseService"
	GroupServiceName   = "splitledger.v1.GroupService"
	SessionServiceName = "splitledger.v1.SessionService"
)

// Fully-qualified procedure names, usable as http.ServeMux patterns and in
// interceptors via connect.Spec.Procedure.
const (
	ExpenseServiceListExpensesProcedure  = "/" + ExpenseServiceName + "/ListExpenses"
	ExpenseServiceGetExpenseProcedure    = "/" + ExpenseServiceName + "/GetExpense"
	ExpenseServiceAddExpenseProcedure    = "/" + ExpenseServiceName + "/AddExpense"
	ExpenseServiceUpdateExpenseProcedure = "/" + ExpenseServiceName + "/UpdateExpense"
	ExpenseServiceDeleteExpenseProcedure = "/" + ExpenseServiceName + "/DeleteExpense"

	GroupServiceListGroupsProcedure       = "/" + GroupServiceName + "/ListGroups"
	GroupServiceGetGroupBalancesProcedure = "/" + GroupServiceName + "/GetGroupBalances"

	SessionServiceLoginProcedure          = "/" + SessionServiceName + "/Login"
	SessionServiceSignupProcedure         = "/" + SessionServiceName + "/Signup"
	SessionServiceForgotPasswordProcedure = "/" + SessionServiceName + "/ForgotPassword"
	SessionServiceWhoAmIProcedure         = "/" + SessionServiceName + "/WhoAmI"
)

func handlerOptions(opts []connect.HandlerOption) connect.HandlerOption {
	return connect.WithHandlerOptions(append([]connect.HandlerOption{connect.WithCodec(api.Codec{})}, opts...)...)
}

func clientOptions(opts []connect.ClientOption) connect.ClientOption {
	return connect.WithClientOptions(append([]connect.ClientOption{connect.WithCodec(api.Codec{})}, opts...)...)
}

// serviceMux routes a service's procedures to their handlers.
func serviceMux(handlers map[string]*connect.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := handlers[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}
