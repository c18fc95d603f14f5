package schema

// Expected returns the descriptor of the harvester's tables. It mirrors the
// GORM models in the domain package column for column.
func Expected() Schema {
	return Schema{Tables: []Table{
		{
			Name: "channel_participants",
			Columns: []Column{
				{Name: "id", Type: TypeBigInt, PrimaryKey: true, AutoIncrement: true},
				{Name: "channel_id", Type: TypeBigInt},
				{Name: "user_id", Type: TypeBigInt},
				{Name: "username", Type: TypeText, Nullable: true},
				{Name: "first_name", Type: TypeText, Nullable: true},
				{Name: "last_name", Type: TypeText, Nullable: true},
				{Name: "phone", Type: TypeText, Nullable: true},
				{Name: "is_bot", Type: TypeBool, Default: Literal(false)},
				{Name: "raw", Type: TypeText, Nullable: true},
				{Name: "state", Type: TypeText, Default: Literal("active")},
				{Name: "last_seen", Type: TypeTimestamp},
				{Name: "departed_at", Type: TypeTimestamp, Nullable: true},
				{Name: "absence_strikes", Type: TypeInteger, Default: Literal(0)},
				{Name: "first_seen", Type: TypeTimestamp, Default: CurrentTimestamp()},
				{Name: "updated_at", Type: TypeTimestamp, Default: CurrentTimestamp()},
			},
			Unique: []Index{
				{Name: "ux_participants_channel_user", Columns: []string{"channel_id", "user_id"}},
			},
			Indexes: []Index{
				{Name: "idx_participants_sweep", Columns: []string{"channel_id", "state", "last_seen"}},
			},
		},
		{
			Name: "harvest_runs",
			Columns: []Column{
				{Name: "id", Type: TypeText, PrimaryKey: true},
				{Name: "channel_id", Type: TypeBigInt},
				{Name: "source", Type: TypeText},
				{Name: "status", Type: TypeText},
				{Name: "started_at", Type: TypeTimestamp},
				{Name: "finished_at", Type: TypeTimestamp, Nullable: true},
				{Name: "observed", Type: TypeInteger, Default: Literal(0)},
				{Name: "inserted", Type: TypeInteger, Default: Literal(0)},
				{Name: "updated", Type: TypeInteger, Default: Literal(0)},
				{Name: "reactivated", Type: TypeInteger, Default: Literal(0)},
				{Name: "failed", Type: TypeInteger, Default: Literal(0)},
				{Name: "departed", Type: TypeInteger, Default: Literal(0)},
				{Name: "verified", Type: TypeInteger, Default: Literal(0)},
				{Name: "ambiguous", Type: TypeInteger, Default: Literal(0)},
				{Name: "probes_failed", Type: TypeInteger, Default: Literal(0)},
				{Name: "error", Type: TypeText, Nullable: true},
			},
			Indexes: []Index{
				{Name: "idx_runs_channel_started", Columns: []string{"channel_id", "started_at"}},
			},
		},
		{
			Name: "harvest_probes",
			Columns: []Column{
				{Name: "id", Type: TypeBigInt, PrimaryKey: true, AutoIncrement: true},
				{Name: "run_id", Type: TypeText},
				{Name: "probe_key", Type: TypeText},
				{Name: "pages", Type: TypeInteger, Default: Literal(0)},
				{Name: "entities", Type: TypeInteger, Default: Literal(0)},
				{Name: "new_entities", Type: TypeInteger, Default: Literal(0)},
				{Name: "error", Type: TypeText, Nullable: true},
				{Name: "created_at", Type: TypeTimestamp, Default: CurrentTimestamp()},
			},
			Indexes: []Index{
				{Name: "idx_probes_run", Columns: []string{"run_id"}},
			},
		},
	}}
}
