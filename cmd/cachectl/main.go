package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// Tipos de respuesta de la API (solo los campos que imprime el CLI).
type item struct {
	Key       string  `json:"key"`
	Value     string  `json:"value"`
	CreatedAt *string `json:"created_at"`
}

type pgItem struct {
	ID        int64  `json:"id"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	CreatedAt string `json:"created_at"`
}

type user struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	CreatedAt string `json:"created_at"`
}

type health struct {
	Status    string            `json:"status"`
	Services  map[string]string `json:"services"`
	CacheMode string            `json:"cache_mode"`
}

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	var (
		baseURL = envOr("CACHEGATE_URL", "http://localhost:5000")
		out     = envOr("CACHEGATE_OUT", "text")
		timeout = 30 * time.Second
	)
	cl := &client{Out: stdout}

	root := &cobra.Command{
		Use:           "cachectl",
		Short:         "CLI para la API de cachegate",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if out != "json" && out != "text" {
				return fmt.Errorf("--out debe ser json o text")
			}
			cl.BaseURL = baseURL
			cl.OutFormat = out
			cl.HTTP = &http.Client{Timeout: timeout}
			return nil
		},
	}
	root.SetOut(stdout)
	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "URL base de la API (env CACHEGATE_URL)")
	root.PersistentFlags().StringVar(&out, "out", out, "Formato de salida: json|text")
	root.PersistentFlags().DurationVar(&timeout, "timeout", timeout, "Timeout por request")

	root.AddCommand(
		getCmd(cl), setCmd(cl), keysCmd(cl), delCmd(cl),
		healthCmd(cl), statsCmd(cl), usersCmd(cl), pgCmd(cl),
	)
	return root
}

func getCmd(cl *client) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Lee una key del cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var it item
			mode, err := cl.do(cmd.Context(), http.MethodGet, "/api/data/redis/"+escape(args[0]), nil, &it)
			if err != nil {
				return err
			}
			return cl.emit(it, mode, func() { cl.printf("%s\n", it.Value) })
		},
	}
}

func setCmd(cl *client) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Guarda una key en el cache",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var it item
			in := map[string]string{"key": args[0], "value": args[1]}
			mode, err := cl.do(cmd.Context(), http.MethodPost, "/api/data/redis", in, &it)
			if err != nil {
				return err
			}
			return cl.emit(it, mode, func() { cl.printf("OK %s\n", it.Key) })
		},
	}
}

func keysCmd(cl *client) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "Lista las keys del cache con su valor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var items []item
			mode, err := cl.do(cmd.Context(), http.MethodGet, "/api/data/redis", nil, &items)
			if err != nil {
				return err
			}
			return cl.emit(items, mode, func() {
				for _, it := range items {
					cl.printf("%s\t%s\n", it.Key, it.Value)
				}
			})
		},
	}
}

func delCmd(cl *client) *cobra.Command {
	return &cobra.Command{
		Use:   "del <key>",
		Short: "Borra una key del cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp map[string]string
			mode, err := cl.do(cmd.Context(), http.MethodDelete, "/api/data/redis/"+escape(args[0]), nil, &resp)
			if err != nil {
				return err
			}
			return cl.emit(resp, mode, func() { cl.printf("OK\n") })
		},
	}
}

func healthCmd(cl *client) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Estado del servicio y sus dependencias",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var h health
			if _, err := cl.do(cmd.Context(), http.MethodGet, "/health", nil, &h); err != nil {
				return err
			}
			return cl.emit(h, "", func() {
				cl.printf("status=%s cache=%s postgres=%s mode=%s\n",
					h.Status, h.Services["cache"], h.Services["postgres"], h.CacheMode)
			})
		},
	}
}

func statsCmd(cl *client) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Estadísticas del cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var st map[string]any
			if _, err := cl.do(cmd.Context(), http.MethodGet, "/api/cache/stats", nil, &st); err != nil {
				return err
			}
			return cl.emit(st, "", func() {
				cl.printf("driver=%v state=%v keys=%v active=%v\n", st["driver"], st["state"], st["keys"], st["active_endpoint"])
			})
		},
	}
}

func usersCmd(cl *client) *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Usuarios guardados en el cache",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Lista usuarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var users []user
			mode, err := cl.do(cmd.Context(), http.MethodGet, "/api/users", nil, &users)
			if err != nil {
				return err
			}
			return cl.emit(users, mode, func() {
				for _, u := range users {
					cl.printf("%s\t%s\t%s\n", u.ID, u.Name, u.Email)
				}
			})
		},
	}

	var name, email, phone string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Crea un usuario",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" || email == "" {
				return fmt.Errorf("--name y --email son requeridos")
			}
			var u user
			in := map[string]string{"name": name, "email": email, "phone": phone}
			mode, err := cl.do(cmd.Context(), http.MethodPost, "/api/users", in, &u)
			if err != nil {
				return err
			}
			return cl.emit(u, mode, func() { cl.printf("%s\n", u.ID) })
		},
	}
	createCmd.Flags().StringVar(&name, "name", "", "Nombre")
	createCmd.Flags().StringVar(&email, "email", "", "Email")
	createCmd.Flags().StringVar(&phone, "phone", "", "Teléfono (opcional)")

	usersCmd.AddCommand(listCmd, createCmd)
	return usersCmd
}

func pgCmd(cl *client) *cobra.Command {
	pg := &cobra.Command{
		Use:   "pg",
		Short: "Items guardados en postgres",
	}

	pg.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Lista items (más nuevos primero)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				var items []pgItem
				if _, err := cl.do(cmd.Context(), http.MethodGet, "/api/data/postgres", nil, &items); err != nil {
					return err
				}
				return cl.emit(items, "", func() {
					for _, it := range items {
						cl.printf("%d\t%s\t%s\n", it.ID, it.Key, it.Value)
					}
				})
			},
		},
		&cobra.Command{
			Use:   "save <key> <value>",
			Short: "Guarda un item",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				var it pgItem
				in := map[string]string{"key": args[0], "value": args[1]}
				if _, err := cl.do(cmd.Context(), http.MethodPost, "/api/data/postgres", in, &it); err != nil {
					return err
				}
				return cl.emit(it, "", func() { cl.printf("OK id=%d\n", it.ID) })
			},
		},
	)
	return pg
}
